package pgas

import (
	"context"
	"time"
)

// API 面向应用的运行时调用面
//
// Runtime 直接实现该接口；Instrument 返回带性能分析的包装。
type API interface {
	MyPE() int
	NPEs() int

	Fence() error
	CtxFence(c Context) error
	FenceTest() bool
	CtxFenceTest(c Context) bool
	Quiet() error
	CtxQuiet(c Context) error
	Barrier(ctx context.Context) error

	GetMem(dest []byte, src uintptr, pe int) error
	CtxGetMem(c Context, dest []byte, src uintptr, pe int) error
	GetMemNBI(dest []byte, src uintptr, pe int) error
	CtxGetMemNBI(c Context, dest []byte, src uintptr, pe int) error

	SetProgressDelay(d time.Duration)
}

var _ API = (*Runtime)(nil)

// Profiler 接收每次 API 调用的进入与退出
type Profiler interface {
	Enter(op string)
	Exit(op string, elapsed time.Duration)
}

// 被分析的操作名
const (
	OpFence            = "fence"
	OpCtxFence         = "ctx_fence"
	OpFenceTest        = "fence_test"
	OpCtxFenceTest     = "ctx_fence_test"
	OpQuiet            = "quiet"
	OpCtxQuiet         = "ctx_quiet"
	OpBarrier          = "barrier"
	OpGetMem           = "getmem"
	OpCtxGetMem        = "ctx_getmem"
	OpGetMemNBI        = "getmem_nbi"
	OpCtxGetMemNBI     = "ctx_getmem_nbi"
	OpSetProgressDelay = "set_progress_delay"
)

// Instrument 用 Profiler 包装调用面
//
// p 为 nil 时原样返回。身份查询不计入分析。
func Instrument(api API, p Profiler) API {
	if p == nil {
		return api
	}
	return &profiled{api: api, p: p}
}

type profiled struct {
	api API
	p   Profiler
}

// enter 记录进入，返回退出回调
func (w *profiled) enter(op string) func() {
	w.p.Enter(op)
	start := time.Now()
	return func() {
		w.p.Exit(op, time.Since(start))
	}
}

func (w *profiled) MyPE() int { return w.api.MyPE() }
func (w *profiled) NPEs() int { return w.api.NPEs() }

func (w *profiled) Fence() error {
	defer w.enter(OpFence)()
	return w.api.Fence()
}

func (w *profiled) CtxFence(c Context) error {
	defer w.enter(OpCtxFence)()
	return w.api.CtxFence(c)
}

func (w *profiled) FenceTest() bool {
	defer w.enter(OpFenceTest)()
	return w.api.FenceTest()
}

func (w *profiled) CtxFenceTest(c Context) bool {
	defer w.enter(OpCtxFenceTest)()
	return w.api.CtxFenceTest(c)
}

func (w *profiled) Quiet() error {
	defer w.enter(OpQuiet)()
	return w.api.Quiet()
}

func (w *profiled) CtxQuiet(c Context) error {
	defer w.enter(OpCtxQuiet)()
	return w.api.CtxQuiet(c)
}

func (w *profiled) Barrier(ctx context.Context) error {
	defer w.enter(OpBarrier)()
	return w.api.Barrier(ctx)
}

func (w *profiled) GetMem(dest []byte, src uintptr, pe int) error {
	defer w.enter(OpGetMem)()
	return w.api.GetMem(dest, src, pe)
}

func (w *profiled) CtxGetMem(c Context, dest []byte, src uintptr, pe int) error {
	defer w.enter(OpCtxGetMem)()
	return w.api.CtxGetMem(c, dest, src, pe)
}

func (w *profiled) GetMemNBI(dest []byte, src uintptr, pe int) error {
	defer w.enter(OpGetMemNBI)()
	return w.api.GetMemNBI(dest, src, pe)
}

func (w *profiled) CtxGetMemNBI(c Context, dest []byte, src uintptr, pe int) error {
	defer w.enter(OpCtxGetMemNBI)()
	return w.api.CtxGetMemNBI(c, dest, src, pe)
}

func (w *profiled) SetProgressDelay(d time.Duration) {
	defer w.enter(OpSetProgressDelay)()
	w.api.SetProgressDelay(d)
}
