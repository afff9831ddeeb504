package ordering

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// Params 排序原语依赖
type Params struct {
	fx.In

	Transport  interfaces.Transport
	Collectors *metrics.Collectors `optional:"true"`
}

func provide(p Params) *Ordering {
	return New(p.Transport, WithCollectors(p.Collectors))
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("ordering",
		fx.Provide(provide),
	)
}
