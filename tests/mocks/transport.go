package mocks

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

// MockContext 模拟通信上下文
type MockContext struct {
	IDValue types.ContextID
}

// ID 返回上下文标识
func (c *MockContext) ID() types.ContextID {
	return c.IDValue
}

var _ interfaces.Transport = (*MockTransport)(nil)

// GetCall 记录的一次 Get 调用
type GetCall struct {
	Context types.ContextID
	NBytes  int
	Src     uintptr
	Target  types.Rank
}

// MockTransport 模拟 Transport 接口实现
//
// 默认行为：Get 在上下文上登记一个未完成操作；
// Complete 完成指定数量的操作；Fence/Quiet 完成全部操作；
// FenceTest 报告上下文上是否没有未完成操作。
type MockTransport struct {
	mu sync.Mutex

	// 基本属性
	Default interfaces.Context
	pending map[types.ContextID]int

	// 可覆盖的方法
	GetFunc       func(c interfaces.Context, dest []byte, src uintptr, target types.Rank) error
	FenceFunc     func(c interfaces.Context) error
	FenceTestFunc func(c interfaces.Context) bool
	QuietFunc     func(c interfaces.Context) error
	ProgressFunc  func()

	// 调用记录
	GetCalls       []GetCall
	FenceCalls     int
	FenceTestCalls int
	QuietCalls     int
	progressCalls  atomic.Int64
}

// NewMockTransport 创建带有默认值的 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Default: &MockContext{IDValue: types.DefaultContextID},
		pending: make(map[types.ContextID]int),
	}
}

// DefaultContext 返回默认上下文
func (m *MockTransport) DefaultContext() interfaces.Context {
	return m.Default
}

// Get 发起读取
func (m *MockTransport) Get(c interfaces.Context, dest []byte, src uintptr, target types.Rank) error {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetCall{Context: c.ID(), NBytes: len(dest), Src: src, Target: target})
	fn := m.GetFunc
	if fn == nil {
		m.pending[c.ID()]++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(c, dest, src, target)
	}
	return nil
}

// Fence 完成上下文上的全部操作
func (m *MockTransport) Fence(c interfaces.Context) error {
	m.mu.Lock()
	m.FenceCalls++
	fn := m.FenceFunc
	if fn == nil {
		m.pending[c.ID()] = 0
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(c)
	}
	return nil
}

// FenceTest 检查上下文上是否没有未完成操作
func (m *MockTransport) FenceTest(c interfaces.Context) bool {
	m.mu.Lock()
	m.FenceTestCalls++
	fn := m.FenceTestFunc
	n := m.pending[c.ID()]
	m.mu.Unlock()

	if fn != nil {
		return fn(c)
	}
	return n == 0
}

// Quiet 完成上下文上的全部操作
func (m *MockTransport) Quiet(c interfaces.Context) error {
	m.mu.Lock()
	m.QuietCalls++
	fn := m.QuietFunc
	if fn == nil {
		m.pending[c.ID()] = 0
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(c)
	}
	return nil
}

// Progress 推进操作
func (m *MockTransport) Progress() {
	m.progressCalls.Add(1)
	if m.ProgressFunc != nil {
		m.ProgressFunc()
	}
}

// ProgressCalls 返回 Progress 调用次数
func (m *MockTransport) ProgressCalls() int64 {
	return m.progressCalls.Load()
}

// Pending 返回上下文上未完成的操作数
func (m *MockTransport) Pending(c interfaces.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[c.ID()]
}

// Complete 完成上下文上的 n 个操作
func (m *MockTransport) Complete(c interfaces.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[c.ID()] -= n
	if m.pending[c.ID()] < 0 {
		m.pending[c.ID()] = 0
	}
}
