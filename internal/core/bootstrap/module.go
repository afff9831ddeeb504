package bootstrap

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// Params 引导模块依赖
type Params struct {
	fx.In

	Rendezvous interfaces.Rendezvous
	Lifecycle  *lifecycle.Coordinator `optional:"true"`
}

// provide 创建引导协调器
func provide(p Params) *Coordinator {
	var opts []Option
	if p.Lifecycle != nil {
		opts = append(opts, WithLifecycle(p.Lifecycle))
	}
	return New(p.Rendezvous, opts...)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(provide),
	)
}
