package loopback

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("transport")

// Resolver 把本地对称地址解析为 (堆, 偏移)
type Resolver interface {
	HeapOf(addr uintptr) (heap int, offset uint64, ok bool)
}

// commContext 通信上下文
type commContext struct {
	id types.ContextID
}

// ID 返回上下文标识
func (c *commContext) ID() types.ContextID {
	return c.id
}

// op 待完成的读取
type op struct {
	dest   []byte
	target types.Rank
	heap   int
	off    uint64
}

// Endpoint 一个 PE 的 loopback 传输
type Endpoint struct {
	fabric *Fabric
	me     types.Rank
	def    *commContext
	nextID atomic.Uint64

	mu       sync.Mutex
	attached bool
	resolver Resolver
	pending  map[types.ContextID][]op
	failed   map[types.ContextID]error
}

var _ interfaces.Transport = (*Endpoint)(nil)

func newEndpoint(f *Fabric) *Endpoint {
	return &Endpoint{
		fabric:  f,
		def:     &commContext{id: types.DefaultContextID},
		pending: make(map[types.ContextID][]op),
		failed:  make(map[types.ContextID]error),
	}
}

// Attach 注册本 PE 的对称堆并设置堆表
//
// 堆表交换完成后调用，之后 Get 才可用。
func (e *Endpoint) Attach(me types.Rank, heaps [][]byte, r Resolver) {
	e.fabric.Register(me, heaps)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.me = me
	e.resolver = r
	e.attached = true
}

// Detach 从 Fabric 移除本 PE 的对称堆
func (e *Endpoint) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return
	}
	e.fabric.Unregister(e.me)
	e.resolver = nil
	e.attached = false
}

// DefaultContext 返回默认上下文
func (e *Endpoint) DefaultContext() interfaces.Context {
	return e.def
}

// NewContext 创建新的通信上下文
func (e *Endpoint) NewContext() interfaces.Context {
	return &commContext{id: types.ContextID(e.nextID.Add(1))}
}

// Get 登记一次读取
func (e *Endpoint) Get(c interfaces.Context, dest []byte, src uintptr, target types.Rank) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolver == nil {
		return ErrNoResolver
	}
	heap, off, ok := e.resolver.HeapOf(src)
	if !ok {
		return fmt.Errorf("%w: %#x", types.ErrAddressOutOfHeap, src)
	}
	e.pending[c.ID()] = append(e.pending[c.ID()], op{dest: dest, target: target, heap: heap, off: off})
	return nil
}

// Fence 完成上下文上的所有读取
func (e *Endpoint) Fence(c interfaces.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drainLocked(c.ID())
}

// FenceTest 上下文上是否没有待完成读取
func (e *Endpoint) FenceTest(c interfaces.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending[c.ID()]) == 0
}

// Quiet 完成上下文上的所有读取
func (e *Endpoint) Quiet(c interfaces.Context) error {
	return e.Fence(c)
}

// Progress 完成所有上下文上的待完成读取
//
// 错误按上下文保留，由该上下文的下一次 Fence/Quiet 返回。
func (e *Endpoint) Progress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.pending {
		if err := e.completeLocked(id); err != nil {
			if _, ok := e.failed[id]; !ok {
				e.failed[id] = err
			}
		}
	}
}

// Pending 返回上下文上待完成的读取数
func (e *Endpoint) Pending(c interfaces.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending[c.ID()])
}

// drainLocked 完成上下文上的读取，并取回 Progress 期间留下的错误
func (e *Endpoint) drainLocked(id types.ContextID) error {
	err := e.completeLocked(id)
	if prev, ok := e.failed[id]; ok {
		delete(e.failed, id)
		err = prev
	}
	return err
}

// completeLocked 按登记顺序完成读取，返回第一个错误；调用方持有锁
func (e *Endpoint) completeLocked(id types.ContextID) error {
	ops := e.pending[id]
	delete(e.pending, id)

	var err error
	for _, o := range ops {
		if rerr := e.fabric.read(o.dest, o.target, o.heap, o.off); rerr != nil {
			log.Debug("loopback get failed", "pe", e.me, "target", o.target, "heap", o.heap, "err", rerr)
			if err == nil {
				err = rerr
			}
		}
	}
	return err
}
