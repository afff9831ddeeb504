package pgas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/asr"
	"github.com/dep2p/go-pgas/internal/core/bootstrap"
	"github.com/dep2p/go-pgas/internal/core/heapx"
	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/internal/core/ordering"
	"github.com/dep2p/go-pgas/internal/core/progress"
	"github.com/dep2p/go-pgas/internal/core/rma"
	"github.com/dep2p/go-pgas/internal/core/transport/loopback"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("pgas")

// Context 通信上下文
type Context = interfaces.Context

// Scalar 可按元素读取的定长类型
type Scalar = rma.Scalar

// state 运行时状态
type state int

const (
	stateCreated state = iota
	stateRunning
	stateFailed
	stateFinalized
)

// ════════════════════════════════════════════════════════════════════════════
//                              Runtime
// ════════════════════════════════════════════════════════════════════════════

// Runtime 一个 PE 的 PGAS 运行时
//
// 生命周期：New → Init（集合）→ 稳态 → Finalize（集合）。
// Init 返回后身份与堆表不再变化，可被任意 goroutine 并发读取。
type Runtime struct {
	opts     *options
	cfg      *config.Config
	app      *fx.App
	ownedJob *Job

	// 由 Fx 注入
	lifecycle  *lifecycle.Coordinator
	boot       *bootstrap.Coordinator
	heaps      *heapx.Registry
	engine     *progress.Engine
	order      *ordering.Ordering
	endpoint   *loopback.Endpoint
	transport  interfaces.Transport
	rendezvous interfaces.Rendezvous
	collectors *metrics.Collectors
	rma        *rma.RMA

	mu         sync.Mutex
	state      state
	appStarted bool

	ready atomic.Bool
	id    types.ProcessIdentity
	table *heapx.Table
}

// New 创建运行时
//
// 只完成配置解析与组件构造，不与其他进程通信。
// 使用进程内 rendezvous 且未指定 Job 时，创建单 PE 作业。
func New(opts ...Option) (*Runtime, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		opts: o,
		cfg:  cfg,
	}

	job := o.job
	if job == nil && cfg.Rendezvous.IsLocal() {
		job, err = NewJob(1)
		if err != nil {
			return nil, err
		}
		rt.ownedJob = job
	}

	app, err := buildFxApp(cfg, job, o, rt)
	if err == nil {
		err = app.Err()
	}
	if err != nil {
		if rt.ownedJob != nil {
			_ = rt.ownedJob.Close()
		}
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	rt.app = app
	rt.rma = rma.New(rt.transport, rt.order)
	return rt, nil
}

// Start 创建并初始化运行时
func Start(ctx context.Context, opts ...Option) (*Runtime, error) {
	rt, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := rt.Init(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              初始化 / 终结
// ════════════════════════════════════════════════════════════════════════════

// Init 初始化运行时
//
// 集合操作，依次完成：
//  1. 引导：从 rendezvous 获取身份并完成初始屏障
//  2. 地址随机化检查（仅告警）
//  3. 映射本地对称堆，发布并交换所有 PE 的堆描述符
//  4. 按配置启动进度线程
//
// 任一集合阶段失败都交给 FatalHandler 处理。
func (rt *Runtime) Init(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch rt.state {
	case stateRunning:
		return ErrAlreadyInitialized
	case stateFailed, stateFinalized:
		return ErrFinalized
	}

	ctx, cancel := context.WithTimeout(ctx, rt.cfg.Bootstrap.InitTimeout.Duration())
	defer cancel()

	if err := rt.app.Start(ctx); err != nil {
		rt.state = stateFailed
		return fmt.Errorf("start runtime: %w", err)
	}
	rt.appStarted = true

	// ════════════════════════════════════════════════════════════════════════
	// Phase 1: 引导
	// ════════════════════════════════════════════════════════════════════════
	id, err := rt.boot.Init(ctx)
	if err != nil {
		return rt.abort(fmt.Errorf("%w: %w", ErrBootstrapFailed, err))
	}
	rt.id = id
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseBootstrap)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 2: 地址随机化检查
	// ════════════════════════════════════════════════════════════════════════
	if rt.cfg.Heap.AlignedAddresses {
		asr.Check(id, asr.Options{Source: rt.opts.addressSource})
	}
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseAddressCheck)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 3: 对称堆交换
	// ════════════════════════════════════════════════════════════════════════
	table, err := rt.exchangeHeaps(ctx, id)
	if err != nil {
		return rt.abort(fmt.Errorf("%w: %w", ErrHeapExchangeFailed, err))
	}
	rt.table = table
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseHeapExchange)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 4: 进度线程
	// ════════════════════════════════════════════════════════════════════════
	if err := rt.engine.Start(progress.Required(rt.cfg.Progress.Threads, int(id.Rank))); err != nil {
		return rt.abort(fmt.Errorf("%w: %w", ErrProgressFailed, err))
	}
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseProgressStart)

	rt.state = stateRunning
	rt.ready.Store(true)
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseRunning)

	log.Info("runtime initialized",
		"rank", id.Rank,
		"npes", id.JobSize,
		"heaps", table.NumHeaps(),
		"progress", rt.engine.Running())
	return nil
}

// exchangeHeaps 映射本地堆并与所有 PE 交换描述符
func (rt *Runtime) exchangeHeaps(ctx context.Context, id types.ProcessIdentity) (*heapx.Table, error) {
	sizes := rt.cfg.Heap.HeapSizes()
	if err := rt.heaps.Allocate(sizes); err != nil {
		return nil, err
	}

	// 发布之前暴露本地堆：其他 PE 拉取到描述符后即可读取
	rt.endpoint.Attach(id.Rank, rt.heaps.Heaps(), rt.heaps)

	table, err := rt.heaps.PublishAndExchange(ctx, id, len(sizes))
	if err != nil {
		return nil, err
	}
	for i, size := range sizes {
		rt.collectors.SetHeapBytes(i, size)
	}
	return table, nil
}

// abort 集合阶段失败
func (rt *Runtime) abort(err error) error {
	rt.state = stateFailed
	log.Error("runtime initialization failed", "err", err)
	rt.opts.fatal(err)
	return err
}

// Finalize 终结运行时
//
// 停止进度线程后离开作业并释放对称堆。重复调用是空操作。
func (rt *Runtime) Finalize(ctx context.Context) error {
	return rt.finalize(ctx, false)
}

// Close 进程退出路径上的隐式终结
//
// 仍在运行时在 rendezvous 终结中嵌入屏障。
func (rt *Runtime) Close() error {
	return rt.finalize(context.Background(), true)
}

func (rt *Runtime) finalize(ctx context.Context, atExit bool) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state == stateFinalized {
		return nil
	}
	rt.ready.Store(false)

	var errs error
	if rt.appStarted {
		errs = rt.teardown(ctx, atExit)
	}

	if rt.ownedJob != nil {
		errs = multierr.Append(errs, rt.ownedJob.Close())
	}
	rt.state = stateFinalized
	return errs
}

// teardown 按初始化的逆序拆除组件
func (rt *Runtime) teardown(ctx context.Context, atExit bool) error {
	var errs error

	// ════════════════════════════════════════════════════════════════════════
	// Phase 1: 停止进度线程
	// ════════════════════════════════════════════════════════════════════════
	stopCtx, stopCancel := context.WithTimeout(ctx, rt.cfg.Progress.StopTimeout.Duration())
	err := rt.engine.Stop(stopCtx)
	stopCancel()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrProgressFailed, err)
		if errors.Is(err, progress.ErrJoinFailed) {
			log.Error("progress thread did not exit", "err", err)
			rt.opts.fatal(err)
		}
		errs = multierr.Append(errs, err)
	}
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseProgressStop)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 2: 离开作业
	// ════════════════════════════════════════════════════════════════════════
	// 解除映射前先从 Fabric 移除，之后的远程读取得到错误而不是访问已释放内存
	rt.endpoint.Detach()

	finCtx, finCancel := context.WithTimeout(ctx, rt.cfg.Bootstrap.FinalizeTimeout.Duration())
	if atExit {
		err = rt.boot.FinalizeAtExit(finCtx)
	} else {
		err = rt.boot.Finalize(finCtx, false)
	}
	finCancel()
	errs = multierr.Append(errs, err)
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseBootstrapFinalize)

	// 初始化中途失败时引导协调器不会释放堆
	errs = multierr.Append(errs, rt.heaps.Release())
	_ = rt.lifecycle.AdvanceTo(lifecycle.PhaseFinalized)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 3: 停止 Fx 应用
	// ════════════════════════════════════════════════════════════════════════
	appCtx, appCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer appCancel()
	errs = multierr.Append(errs, rt.app.Stop(appCtx))

	log.Debug("runtime finalized", "rank", rt.id.Rank)
	return errs
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份与对称堆
// ════════════════════════════════════════════════════════════════════════════

// MyPE 返回本 PE 编号，初始化前为 -1
func (rt *Runtime) MyPE() int {
	if !rt.ready.Load() {
		return -1
	}
	return int(rt.id.Rank)
}

// NPEs 返回作业中的 PE 数，初始化前为 0
func (rt *Runtime) NPEs() int {
	if !rt.ready.Load() {
		return 0
	}
	return rt.id.JobSize
}

// Identity 返回本进程身份
func (rt *Runtime) Identity() (types.ProcessIdentity, error) {
	if !rt.ready.Load() {
		return types.ProcessIdentity{}, ErrNotInitialized
	}
	return rt.id.Clone(), nil
}

// Config 返回生效的配置（拷贝）
func (rt *Runtime) Config() *config.Config {
	return rt.cfg.Clone()
}

// Phase 返回当前生命周期阶段名
func (rt *Runtime) Phase() string {
	return rt.lifecycle.Phase().String()
}

// OnPhaseChange 注册生命周期阶段变更回调
//
// 回调在推进阶段的 goroutine 中同步执行（Init / Finalize 内部），不能阻塞。
func (rt *Runtime) OnPhaseChange(fn func(from, to string)) {
	rt.lifecycle.OnPhaseChange(func(old, new lifecycle.Phase) {
		fn(old.String(), new.String())
	})
}

// WaitRunning 阻塞直到 Init 完成
//
// 运行时在此之前被终结时返回错误。
func (rt *Runtime) WaitRunning(ctx context.Context) error {
	if err := rt.lifecycle.WaitFor(ctx, lifecycle.PhaseRunning); err != nil {
		return err
	}
	if !rt.ready.Load() {
		return ErrFinalized
	}
	return nil
}

// HeapTable 返回堆表快照
func (rt *Runtime) HeapTable() (map[types.HeapKey]types.HeapDescriptor, error) {
	if !rt.ready.Load() {
		return nil, ErrNotInitialized
	}
	return rt.table.Snapshot(), nil
}

// HeapDescriptor 返回 pe 的第 heap 个堆的描述符
func (rt *Runtime) HeapDescriptor(heap, pe int) (types.HeapDescriptor, error) {
	target, err := rt.target(pe)
	if err != nil {
		return types.HeapDescriptor{}, err
	}
	d, ok := rt.table.Get(heap, target)
	if !ok {
		return types.HeapDescriptor{}, fmt.Errorf("%w: %d", types.ErrInvalidHeapIndex, heap)
	}
	return d, nil
}

// Heap 返回本地第 i 个对称堆
func (rt *Runtime) Heap(i int) ([]byte, error) {
	if !rt.ready.Load() {
		return nil, ErrNotInitialized
	}
	return rt.heaps.Heap(i)
}

// Addr 返回本地第 heap 个堆中偏移 off 处的对称地址
func (rt *Runtime) Addr(heap int, off uint64) (uintptr, error) {
	if !rt.ready.Load() {
		return 0, ErrNotInitialized
	}
	d, ok := rt.table.Local(heap)
	if !ok {
		return 0, fmt.Errorf("%w: %d", types.ErrInvalidHeapIndex, heap)
	}
	if off >= d.Size {
		return 0, fmt.Errorf("%w: offset %d, heap %d (%d bytes)", types.ErrAddressOutOfHeap, off, heap, d.Size)
	}
	return d.Base + uintptr(off), nil
}

// Translate 把本地对称地址转换为 pe 上的对应地址
func (rt *Runtime) Translate(heap int, addr uintptr, pe int) (uintptr, error) {
	target, err := rt.target(pe)
	if err != nil {
		return 0, err
	}
	return rt.table.Translate(heap, addr, target)
}

// target 校验目标 PE
func (rt *Runtime) target(pe int) (types.Rank, error) {
	if !rt.ready.Load() {
		return 0, ErrNotInitialized
	}
	r := types.Rank(pe)
	if !r.Valid(rt.id.JobSize) {
		return 0, fmt.Errorf("%w: %d of %d", ErrInvalidPE, pe, rt.id.JobSize)
	}
	return r, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              上下文与排序
// ════════════════════════════════════════════════════════════════════════════

// DefaultContext 返回默认通信上下文
func (rt *Runtime) DefaultContext() Context {
	return rt.transport.DefaultContext()
}

// NewContext 创建新的通信上下文
//
// 每个上下文只应由一个 goroutine 发起操作。
func (rt *Runtime) NewContext() Context {
	return rt.endpoint.NewContext()
}

// Fence 默认上下文上的 fence
func (rt *Runtime) Fence() error {
	if !rt.ready.Load() {
		return ErrNotInitialized
	}
	return rt.order.FenceDefault()
}

// CtxFence 指定上下文上的 fence
func (rt *Runtime) CtxFence(c Context) error {
	if !rt.ready.Load() {
		return ErrNotInitialized
	}
	return rt.order.Fence(c)
}

// FenceTest 默认上下文的 fence 条件是否已满足
func (rt *Runtime) FenceTest() bool {
	if !rt.ready.Load() {
		return false
	}
	return rt.order.FenceTestDefault()
}

// CtxFenceTest 指定上下文的 fence 条件是否已满足
func (rt *Runtime) CtxFenceTest(c Context) bool {
	if !rt.ready.Load() {
		return false
	}
	return rt.order.FenceTest(c)
}

// Quiet 等待默认上下文上所有操作完成
func (rt *Runtime) Quiet() error {
	if !rt.ready.Load() {
		return ErrNotInitialized
	}
	return rt.order.QuietDefault()
}

// CtxQuiet 等待指定上下文上所有操作完成
func (rt *Runtime) CtxQuiet(c Context) error {
	if !rt.ready.Load() {
		return ErrNotInitialized
	}
	return rt.order.Quiet(c)
}

// Barrier 所有 PE 的屏障
func (rt *Runtime) Barrier(ctx context.Context) error {
	if !rt.ready.Load() {
		return ErrNotInitialized
	}
	return rt.rendezvous.Barrier(ctx)
}

// ════════════════════════════════════════════════════════════════════════════
//                              远程读取
// ════════════════════════════════════════════════════════════════════════════

// GetMem 从 pe 的对称地址 src 读取 len(dest) 字节，返回时已完成
func (rt *Runtime) GetMem(dest []byte, src uintptr, pe int) error {
	return rt.CtxGetMem(rt.DefaultContext(), dest, src, pe)
}

// CtxGetMem 在指定上下文上读取，返回时已完成
func (rt *Runtime) CtxGetMem(c Context, dest []byte, src uintptr, pe int) error {
	target, err := rt.target(pe)
	if err != nil {
		return err
	}
	return rt.rma.GetMem(c, dest, src, target)
}

// GetMemNBI 发起读取，完成由 Quiet 或进度线程保证
func (rt *Runtime) GetMemNBI(dest []byte, src uintptr, pe int) error {
	return rt.CtxGetMemNBI(rt.DefaultContext(), dest, src, pe)
}

// CtxGetMemNBI 在指定上下文上发起读取
func (rt *Runtime) CtxGetMemNBI(c Context, dest []byte, src uintptr, pe int) error {
	target, err := rt.target(pe)
	if err != nil {
		return err
	}
	return rt.rma.GetMemNBI(c, dest, src, target)
}

// GetSized 读取 nelems 个 bits 位宽的元素
func (rt *Runtime) GetSized(dest []byte, src uintptr, nelems, bits, pe int) error {
	target, err := rt.target(pe)
	if err != nil {
		return err
	}
	return rt.rma.GetSized(rt.DefaultContext(), dest, src, nelems, bits, target)
}

// Get 从 pe 读取 len(dest) 个元素
func Get[T Scalar](rt *Runtime, dest []T, src uintptr, pe int) error {
	target, err := rt.target(pe)
	if err != nil {
		return err
	}
	return rma.Get(rt.rma, rt.DefaultContext(), dest, src, target)
}

// G 从 pe 读取单个元素
func G[T Scalar](rt *Runtime, src uintptr, pe int) (T, error) {
	target, err := rt.target(pe)
	if err != nil {
		var zero T
		return zero, err
	}
	return rma.G[T](rt.rma, rt.DefaultContext(), src, target)
}

// ════════════════════════════════════════════════════════════════════════════
//                              进度与观测
// ════════════════════════════════════════════════════════════════════════════

// SetProgressDelay 调整进度循环的休眠，运行中调用在下一周期生效
func (rt *Runtime) SetProgressDelay(d time.Duration) {
	rt.engine.SetDelay(d)
}

// ProgressDelay 返回当前进度休眠
func (rt *Runtime) ProgressDelay() time.Duration {
	return rt.engine.Delay()
}

// ProgressRunning 本 PE 是否运行进度线程
func (rt *Runtime) ProgressRunning() bool {
	return rt.engine.Running()
}

// Gatherer 返回本运行时的指标，未启用时为 nil
func (rt *Runtime) Gatherer() prometheus.Gatherer {
	if rt.collectors == nil {
		return nil
	}
	return rt.collectors.Registry()
}

// API 返回面向应用的调用面
//
// 配置了 Profiler 时每次调用都会经过 Enter/Exit。
func (rt *Runtime) API() API {
	if rt.opts.profiler != nil {
		return Instrument(rt, rt.opts.profiler)
	}
	return rt
}
