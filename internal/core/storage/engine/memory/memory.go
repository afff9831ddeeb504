// Package memory 提供进程内 map 存储引擎
package memory

import (
	"bytes"
	"slices"
	"strings"
	"sync"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
)

// Engine 内存存储引擎
//
// 写入与读出的值都做拷贝，调用方可以自由修改自己的切片。
type Engine struct {
	mu   sync.RWMutex
	data map[string][]byte // nil 表示已关闭
}

var _ engine.Engine = (*Engine)(nil)

// New 创建内存存储引擎
func New() *Engine {
	return &Engine{data: make(map[string][]byte)}
}

// Get 获取指定键的值
func (e *Engine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.data == nil {
		return nil, engine.ErrClosed
	}
	v, ok := e.data[string(key)]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Put 写入键值对
func (e *Engine) Put(key, value []byte) error {
	_, _, err := e.store(key, value, true)
	return err
}

// Insert 仅在键不存在时写入
func (e *Engine) Insert(key, value []byte) ([]byte, bool, error) {
	return e.store(key, value, false)
}

func (e *Engine) store(key, value []byte, overwrite bool) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, engine.ErrEmptyKey
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.data == nil {
		return nil, false, engine.ErrClosed
	}
	if old, ok := e.data[string(key)]; ok && !overwrite {
		return bytes.Clone(old), false, nil
	}
	e.data[string(key)] = bytes.Clone(value)
	return nil, true, nil
}

// Scan 按键序遍历具有指定前缀的键值对
//
// 回调在锁外执行，遍历的是调用时刻的快照。
func (e *Engine) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	e.mu.RLock()
	if e.data == nil {
		e.mu.RUnlock()
		return engine.ErrClosed
	}
	type pair struct {
		k string
		v []byte
	}
	var snap []pair
	for k, v := range e.data {
		if strings.HasPrefix(k, string(prefix)) {
			snap = append(snap, pair{k, v})
		}
	}
	e.mu.RUnlock()

	slices.SortFunc(snap, func(a, b pair) int { return strings.Compare(a.k, b.k) })
	for _, p := range snap {
		if !fn([]byte(p.k), bytes.Clone(p.v)) {
			break
		}
	}
	return nil
}

// Close 关闭引擎并丢弃全部数据
func (e *Engine) Close() error {
	e.mu.Lock()
	e.data = nil
	e.mu.Unlock()
	return nil
}
