package heapx

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/bootstrap"
	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// Params 对称堆模块依赖
type Params struct {
	fx.In

	Rendezvous interfaces.Rendezvous
	Config     *config.Config         `optional:"true"`
	Allocator  Allocator              `optional:"true"`
	Lifecycle  *lifecycle.Coordinator `optional:"true"`
}

func provide(p Params) *Registry {
	var opts []Option
	if p.Config != nil {
		opts = append(opts, WithParallelism(p.Config.Heap.ExchangeParallelism))
	}
	if p.Allocator != nil {
		opts = append(opts, WithAllocator(p.Allocator))
	}
	if p.Lifecycle != nil {
		opts = append(opts, WithLifecycle(p.Lifecycle))
	}
	return NewRegistry(p.Rendezvous, opts...)
}

// bindReleaser 终结时由引导协调器释放对称堆
func bindReleaser(c *bootstrap.Coordinator, r *Registry) {
	c.SetReleaser(r)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("heapx",
		fx.Provide(provide),
		fx.Invoke(bindReleaser),
	)
}
