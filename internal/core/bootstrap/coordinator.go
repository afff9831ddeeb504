package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var (
	logInit     = logger.Logger("init")
	logFinalize = logger.Logger("finalize")
)

// Releaser 终结时释放的资源（对称堆注册表）
type Releaser interface {
	Release() error
}

// Coordinator 引导协调器
type Coordinator struct {
	rv        interfaces.Rendezvous
	lifecycle *lifecycle.Coordinator

	mu       sync.Mutex
	running  bool
	identity types.ProcessIdentity
	releaser Releaser
}

// Option 协调器选项
type Option func(*Coordinator)

// WithReleaser 设置终结时释放的资源
func WithReleaser(r Releaser) Option {
	return func(c *Coordinator) {
		c.releaser = r
	}
}

// WithLifecycle 在身份就绪时通知生命周期协调器
func WithLifecycle(lc *lifecycle.Coordinator) Option {
	return func(c *Coordinator) {
		c.lifecycle = lc
	}
}

// New 创建引导协调器
func New(rv interfaces.Rendezvous, opts ...Option) *Coordinator {
	c := &Coordinator{rv: rv}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetReleaser 设置终结时释放的资源
//
// 对称堆注册表依赖引导结果，因此在构造之后注入。
func (c *Coordinator) SetReleaser(r Releaser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaser = r
}

// Init 加入作业，返回本进程身份
//
// 集合操作：所有进程都返回后引导在全局完成。
// 返回的错误都表示作业本身已损坏，调用方应当终止进程。
func (c *Coordinator) Init(ctx context.Context) (types.ProcessIdentity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return types.ProcessIdentity{}, ErrAlreadyRunning
	}

	info, err := c.rv.Init(ctx)
	if err != nil {
		return types.ProcessIdentity{}, fmt.Errorf("rendezvous init: %w", err)
	}

	id := types.ProcessIdentity{
		Rank:           info.Rank,
		JobSize:        info.JobSize,
		LocalPeerCount: info.LocalPeerCount,
		LocalPeerRanks: append([]types.Rank(nil), info.LocalPeers...),
	}
	if err := id.Validate(); err != nil {
		return types.ProcessIdentity{}, fmt.Errorf("%w: %w", ErrInconsistentWorld, err)
	}

	logInit.Info(peerSummary(id.LocalPeerCount),
		"rank", id.Rank,
		"npes", id.JobSize,
		"peers", FormatPeerList(id.LocalPeerRanks))

	if err := c.rv.Barrier(ctx); err != nil {
		return types.ProcessIdentity{}, fmt.Errorf("rendezvous barrier: %w", err)
	}

	c.identity = id
	c.running = true

	if c.lifecycle != nil {
		c.lifecycle.SetIdentityReady()
	}
	return id.Clone(), nil
}

func peerSummary(n int) string {
	if n > 1 {
		return fmt.Sprintf("there are %d peers on this node", n)
	}
	return fmt.Sprintf("there is %d peer on this node", n)
}

// Finalize 离开作业
//
// 未运行时是空操作。needBarrier 为 true 时在 rendezvous 终结握手中
// 嵌入一次屏障，让对等进程知道本进程正常离开。
func (c *Coordinator) Finalize(ctx context.Context, needBarrier bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalizeLocked(ctx, needBarrier)
}

// FinalizeAtExit 进程退出路径上的隐式终结
//
// 仍在运行时嵌入屏障。
func (c *Coordinator) FinalizeAtExit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalizeLocked(ctx, c.running)
}

func (c *Coordinator) finalizeLocked(ctx context.Context, needBarrier bool) error {
	if !c.running {
		return nil
	}

	if needBarrier {
		logFinalize.Info("still alive, add barrier to finalize")
	}

	if err := c.rv.Finalize(ctx, needBarrier); err != nil {
		return fmt.Errorf("rendezvous finalize: %w", err)
	}

	// 已离开作业，释放失败也不能重复终结
	c.running = false

	if c.releaser != nil {
		if err := c.releaser.Release(); err != nil {
			return fmt.Errorf("release heaps: %w", err)
		}
	}

	logFinalize.Info("shut down complete", "rank", c.identity.Rank)
	return nil
}

// Running 是否处于已初始化且未终结状态
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Identity 返回本进程身份
//
// Init 成功之前返回零值。
func (c *Coordinator) Identity() types.ProcessIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity.Clone()
}
