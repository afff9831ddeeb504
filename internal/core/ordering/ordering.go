package ordering

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("fence")

// Ordering 排序原语
type Ordering struct {
	t       interfaces.Transport
	metrics *metrics.Collectors

	// 进程级通信互斥锁
	mu sync.Mutex
}

// Option 选项
type Option func(*Ordering)

// WithCollectors 设置指标
func WithCollectors(c *metrics.Collectors) Option {
	return func(o *Ordering) {
		o.metrics = c
	}
}

// New 创建排序原语
func New(t interfaces.Transport, opts ...Option) *Ordering {
	o := &Ordering{t: t}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Guard 按策略执行 fn
//
// MutexProtected 持有进程级通信互斥锁，MutexNoProtect 直接调用。
func (o *Ordering) Guard(policy types.MutexPolicy, fn func() error) error {
	if policy == types.MutexProtected {
		o.mu.Lock()
		defer o.mu.Unlock()
	}
	return fn()
}

// Fence 上下文 fence
func (o *Ordering) Fence(c interfaces.Context) error {
	log.Debug(fmt.Sprintf("ctx_fence(ctx=%s)", c.ID()))
	return o.fence(c)
}

// FenceDefault 默认上下文 fence
func (o *Ordering) FenceDefault() error {
	log.Debug("fence()")
	return o.fence(o.t.DefaultContext())
}

func (o *Ordering) fence(c interfaces.Context) error {
	o.metrics.ObserveFence()
	return o.Guard(types.MutexNoProtect, func() error {
		return o.t.Fence(c)
	})
}

// FenceTest 非阻塞检查上下文 fence 条件
func (o *Ordering) FenceTest(c interfaces.Context) bool {
	ok := o.fenceTest(c)
	log.Debug(fmt.Sprintf("ctx_fence_test(ctx=%s) -> %t", c.ID(), ok))
	return ok
}

// FenceTestDefault 非阻塞检查默认上下文 fence 条件
func (o *Ordering) FenceTestDefault() bool {
	return o.fenceTest(o.t.DefaultContext())
}

func (o *Ordering) fenceTest(c interfaces.Context) bool {
	var ok bool
	_ = o.Guard(types.MutexNoProtect, func() error {
		ok = o.t.FenceTest(c)
		return nil
	})
	o.metrics.ObserveFenceTest(ok)
	return ok
}

// Quiet 等待上下文上所有操作完成
func (o *Ordering) Quiet(c interfaces.Context) error {
	log.Debug(fmt.Sprintf("ctx_quiet(ctx=%s)", c.ID()))
	return o.quiet(c)
}

// QuietDefault 等待默认上下文上所有操作完成
func (o *Ordering) QuietDefault() error {
	log.Debug("quiet()")
	return o.quiet(o.t.DefaultContext())
}

func (o *Ordering) quiet(c interfaces.Context) error {
	o.metrics.ObserveQuiet()
	return o.Guard(types.MutexProtected, func() error {
		return o.t.Quiet(c)
	})
}
