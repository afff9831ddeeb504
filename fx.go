package pgas

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/bootstrap"
	"github.com/dep2p/go-pgas/internal/core/heapx"
	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/internal/core/ordering"
	"github.com/dep2p/go-pgas/internal/core/progress"
	"github.com/dep2p/go-pgas/internal/core/rendezvous"
	"github.com/dep2p/go-pgas/internal/core/transport"
	"github.com/dep2p/go-pgas/internal/core/transport/loopback"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 基础: Lifecycle → Metrics
//  2. 服务: Rendezvous → Transport
//  3. 核心: Bootstrap → Heapx → Progress → Ordering
//
// 各模块只完成构造；初始化的集合阶段由 Runtime.Init 按序驱动。
func buildFxApp(cfg *config.Config, job *Job, o *options, rt *Runtime) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if job != nil {
		if err := config.ValidateForJob(cfg, job.Size()); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	modules := []fx.Option{
		fx.Supply(cfg),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 进程内作业：共享 rendezvous 状态与 loopback Fabric
	// ════════════════════════════════════════════════════════════════════════
	if job != nil {
		modules = append(modules, fx.Supply(job.store, job.fabric))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		lifecycle.Module(),
		metrics.Module(),
		rendezvous.Module(),
		transport.Module(),
		bootstrap.Module(),
		heapx.Module(),
		progress.Module(),
		ordering.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.userFx...)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 注入运行时组件
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectRuntimeComponents(rt)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	return fx.New(modules...), nil
}

// runtimeComponents 运行时依赖的组件
type runtimeComponents struct {
	fx.In

	Lifecycle  *lifecycle.Coordinator
	Bootstrap  *bootstrap.Coordinator
	Heaps      *heapx.Registry
	Progress   *progress.Engine
	Ordering   *ordering.Ordering
	Endpoint   *loopback.Endpoint
	Transport  interfaces.Transport
	Rendezvous interfaces.Rendezvous
	Collectors *metrics.Collectors `optional:"true"`
}

// injectRuntimeComponents 将 Fx 构造的组件注入 Runtime
func injectRuntimeComponents(rt *Runtime) func(runtimeComponents) {
	return func(c runtimeComponents) {
		rt.lifecycle = c.Lifecycle
		rt.boot = c.Bootstrap
		rt.heaps = c.Heaps
		rt.engine = c.Progress
		rt.order = c.Ordering
		rt.endpoint = c.Endpoint
		rt.transport = c.Transport
		rt.rendezvous = c.Rendezvous
		rt.collectors = c.Collectors
	}
}
