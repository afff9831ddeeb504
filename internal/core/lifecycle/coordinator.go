// Package lifecycle 提供运行时生命周期协调器
//
// 阶段定义：
//   - 初始化: 引导 → 地址检查 → 对称堆交换 → 进度线程启动 → 运行
//   - 终结: 进度线程停止 → 引导终结 → 完成
//
// 本模块的核心职责：
//  1. 定义生命周期阶段 gate
//  2. 提供基于信号的显式依赖机制（例如身份就绪）
//  3. 确保各阶段按序推进
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-pgas/internal/util/logger"
)

var log = logger.Logger("lifecycle")

// ============================================================================
//                              阶段定义
// ============================================================================

// Phase 生命周期阶段
type Phase int

const (
	// PhaseCreated 运行时已创建，未初始化
	PhaseCreated Phase = iota

	// ═══════════════════════════ 初始化 ═══════════════════════════

	// PhaseBootstrap 通过 rendezvous 获取进程身份并完成初始屏障
	PhaseBootstrap

	// PhaseAddressCheck 地址随机化检查（需要本节点对等进程信息）
	PhaseAddressCheck

	// PhaseHeapExchange 映射本地对称堆并交换所有进程的堆描述符
	PhaseHeapExchange

	// PhaseProgressStart 按需启动进度线程
	PhaseProgressStart

	// PhaseRunning 稳态运行
	PhaseRunning

	// ═══════════════════════════ 终结 ═══════════════════════════

	// PhaseProgressStop 停止并回收进度线程
	PhaseProgressStop

	// PhaseBootstrapFinalize rendezvous 终结（可能内嵌屏障）
	PhaseBootstrapFinalize

	// PhaseFinalized 终结完成
	PhaseFinalized
)

// String 返回阶段字符串表示
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseBootstrap:
		return "init:bootstrap"
	case PhaseAddressCheck:
		return "init:address_check"
	case PhaseHeapExchange:
		return "init:heap_exchange"
	case PhaseProgressStart:
		return "init:progress_start"
	case PhaseRunning:
		return "running"
	case PhaseProgressStop:
		return "finalize:progress_stop"
	case PhaseBootstrapFinalize:
		return "finalize:bootstrap"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// ============================================================================
//                              生命周期协调器
// ============================================================================

// Coordinator 生命周期协调器
//
// 核心职责：
//  1. 追踪当前生命周期阶段
//  2. 提供阶段 gate（等待特定阶段完成）
//  3. 通知阶段变更
//  4. 确保阶段按序推进
type Coordinator struct {
	mu sync.RWMutex

	phase Phase

	// key: 阶段, value: 关闭即表示该阶段已到达
	phaseSignals map[Phase]chan struct{}

	// 身份就绪信号
	// 关闭后 rank/job_size 可读，对称堆交换可以开始
	identityReadyChan chan struct{}
	identityReady     bool

	onPhaseChange []func(old, new Phase)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCoordinator 创建生命周期协调器
func NewCoordinator() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		phase:             PhaseCreated,
		phaseSignals:      make(map[Phase]chan struct{}),
		identityReadyChan: make(chan struct{}),
		ctx:               ctx,
		cancel:            cancel,
	}

	for p := PhaseCreated; p <= PhaseFinalized; p++ {
		c.phaseSignals[p] = make(chan struct{})
	}
	close(c.phaseSignals[PhaseCreated])

	return c
}

// ============================================================================
//                              阶段管理
// ============================================================================

// Phase 返回当前阶段
func (c *Coordinator) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// AdvanceTo 推进到指定阶段
//
// 规则：
//   - 只能向前推进，不能后退
//   - 会自动完成中间所有阶段的信号
func (c *Coordinator) AdvanceTo(target Phase) error {
	if target < PhaseCreated || target > PhaseFinalized {
		return fmt.Errorf("invalid phase: %d", target)
	}

	c.mu.Lock()

	if target < c.phase {
		current := c.phase
		c.mu.Unlock()
		return fmt.Errorf("cannot advance backwards: current=%s target=%s", current, target)
	}
	if target == c.phase {
		c.mu.Unlock()
		return nil
	}

	old := c.phase
	for p := c.phase; p <= target; p++ {
		ch := c.phaseSignals[p]
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
	c.phase = target

	callbacks := make([]func(old, new Phase), len(c.onPhaseChange))
	copy(callbacks, c.onPhaseChange)
	c.mu.Unlock()

	log.Debug("lifecycle phase advanced", "from", old.String(), "to", target.String())

	for _, cb := range callbacks {
		cb(old, target)
	}
	return nil
}

// WaitFor 等待指定阶段到达
//
// 阻塞直到目标阶段完成、上下文取消或协调器停止。
func (c *Coordinator) WaitFor(ctx context.Context, phase Phase) error {
	c.mu.RLock()
	ch := c.phaseSignals[phase]
	c.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("invalid phase: %d", phase)
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// IsCompleted 检查指定阶段是否已到达
func (c *Coordinator) IsCompleted(phase Phase) bool {
	c.mu.RLock()
	ch := c.phaseSignals[phase]
	c.mu.RUnlock()

	if ch == nil {
		return false
	}

	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// ============================================================================
//                              身份就绪 Gate
// ============================================================================

// SetIdentityReady 标记进程身份已就绪
//
// 调用时机：引导完成（rendezvous 返回 rank/job_size 且初始屏障通过）
func (c *Coordinator) SetIdentityReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identityReady {
		return
	}

	c.identityReady = true
	close(c.identityReadyChan)
}

// WaitIdentityReady 等待进程身份就绪
func (c *Coordinator) WaitIdentityReady(ctx context.Context) error {
	c.mu.RLock()
	ch := c.identityReadyChan
	ready := c.identityReady
	c.mu.RUnlock()

	if ready {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// ============================================================================
//                              回调管理
// ============================================================================

// OnPhaseChange 注册阶段变更回调
//
// 回调在 AdvanceTo 的调用方 goroutine 中同步执行。
func (c *Coordinator) OnPhaseChange(callback func(old, new Phase)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPhaseChange = append(c.onPhaseChange, callback)
}

// ============================================================================
//                              生命周期控制
// ============================================================================

// Stop 停止协调器，解除所有等待
func (c *Coordinator) Stop() {
	c.cancel()
}
