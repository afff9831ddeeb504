package mocks

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// ErrMockKeyNotFound 键不存在
var ErrMockKeyNotFound = errors.New("mock: key not found")

var _ interfaces.Rendezvous = (*MockRendezvous)(nil)

// MockRendezvous 模拟 Rendezvous 接口实现
//
// 默认行为：Init 返回 Info；Publish 写入内部 map；
// Lookup 从内部 map 读取（wait 不阻塞）；Barrier/Finalize 成功。
type MockRendezvous struct {
	mu sync.Mutex

	// 基本属性
	Info   interfaces.BootstrapInfo
	Values map[string][]byte

	// 可覆盖的方法
	InitFunc     func(ctx context.Context) (interfaces.BootstrapInfo, error)
	BarrierFunc  func(ctx context.Context) error
	PublishFunc  func(ctx context.Context, key string, value []byte) error
	LookupFunc   func(ctx context.Context, key string, wait bool) ([]byte, error)
	FinalizeFunc func(ctx context.Context, embedBarrier bool) error

	// 调用记录
	InitCalls        int
	BarrierCalls     int
	PublishCalls     int
	LookupCalls      int
	FinalizeCalls    int
	LastEmbedBarrier bool
	PublishedKeys    []string
}

// NewMockRendezvous 创建带有默认值的 MockRendezvous
func NewMockRendezvous(info interfaces.BootstrapInfo) *MockRendezvous {
	return &MockRendezvous{
		Info:   info,
		Values: make(map[string][]byte),
	}
}

// Init 加入作业
func (m *MockRendezvous) Init(ctx context.Context) (interfaces.BootstrapInfo, error) {
	m.mu.Lock()
	m.InitCalls++
	fn := m.InitFunc
	info := m.Info
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return info, nil
}

// Barrier 屏障
func (m *MockRendezvous) Barrier(ctx context.Context) error {
	m.mu.Lock()
	m.BarrierCalls++
	fn := m.BarrierFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Publish 发布键值
func (m *MockRendezvous) Publish(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.PublishCalls++
	m.PublishedKeys = append(m.PublishedKeys, key)
	fn := m.PublishFunc
	if fn == nil {
		m.Values[key] = bytes.Clone(value)
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, value)
	}
	return nil
}

// Lookup 查找键值
func (m *MockRendezvous) Lookup(ctx context.Context, key string, wait bool) ([]byte, error) {
	m.mu.Lock()
	m.LookupCalls++
	fn := m.LookupFunc
	v, ok := m.Values[key]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, wait)
	}
	if !ok {
		return nil, ErrMockKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Finalize 离开作业
func (m *MockRendezvous) Finalize(ctx context.Context, embedBarrier bool) error {
	m.mu.Lock()
	m.FinalizeCalls++
	m.LastEmbedBarrier = embedBarrier
	fn := m.FinalizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, embedBarrier)
	}
	return nil
}

// Set 直接写入一个键值（模拟其他进程的发布）
func (m *MockRendezvous) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Values[key] = bytes.Clone(value)
}

// Calls 返回 (Init, Barrier, Publish, Lookup, Finalize) 调用次数快照
func (m *MockRendezvous) Calls() (initCalls, barrier, publish, lookup, finalize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InitCalls, m.BarrierCalls, m.PublishCalls, m.LookupCalls, m.FinalizeCalls
}
