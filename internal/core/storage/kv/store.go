package kv

import (
	"github.com/dep2p/go-pgas/internal/core/storage/engine"
)

// Store 带前缀隔离的键值视图
//
// 所有键都加上 Store 的前缀后写入引擎，遍历时返回去掉前缀的键。
// rendezvous 的键是字符串（如 "3:heapx:0:base"），视图直接使用 string。
type Store struct {
	eng    engine.Engine
	prefix string
}

// New 创建前缀为 prefix 的视图
func New(eng engine.Engine, prefix string) *Store {
	return &Store{eng: eng, prefix: prefix}
}

// Sub 在当前前缀之后追加 prefix，返回子视图
func (s *Store) Sub(prefix string) *Store {
	return &Store{eng: s.eng, prefix: s.prefix + prefix}
}

// Prefix 返回完整前缀
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(k string) []byte {
	return []byte(s.prefix + k)
}

// Get 读取键值，不存在返回 engine.ErrNotFound
func (s *Store) Get(key string) ([]byte, error) {
	return s.eng.Get(s.key(key))
}

// Put 写入键值
func (s *Store) Put(key string, value []byte) error {
	return s.eng.Put(s.key(key), value)
}

// Insert 仅在键不存在时写入，键已存在时返回现有值
func (s *Store) Insert(key string, value []byte) (existing []byte, inserted bool, err error) {
	return s.eng.Insert(s.key(key), value)
}

// Scan 按键序遍历视图内的键值
func (s *Store) Scan(fn func(key string, value []byte) bool) error {
	n := len(s.prefix)
	return s.eng.Scan([]byte(s.prefix), func(k, v []byte) bool {
		return fn(string(k[n:]), v)
	})
}

// Len 返回视图内的键数
func (s *Store) Len() (int, error) {
	n := 0
	err := s.Scan(func(string, []byte) bool {
		n++
		return true
	})
	return n, err
}
