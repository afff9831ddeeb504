package progress

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// Params 进度模块依赖
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Transport  interfaces.Transport
	Config     *config.Config      `optional:"true"`
	Collectors *metrics.Collectors `optional:"true"`
}

func provide(p Params) (*Engine, error) {
	var opts []Option
	if p.Config != nil {
		opts = append(opts, WithDelay(p.Config.Progress.Delay.Duration()))
	}
	e := New(p.Transport, opts...)
	if err := p.Collectors.RegisterPolls(e.Polls); err != nil {
		return nil, err
	}

	// 兜底：运行时未显式停止时随应用一起停止
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return e.Stop(ctx)
		},
	})
	return e, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("progress",
		fx.Provide(provide),
	)
}
