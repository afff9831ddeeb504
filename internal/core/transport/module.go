package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/internal/core/transport/loopback"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

var log = logger.Logger("transport")

// Params 传输层依赖参数
type Params struct {
	fx.In

	Fabric    *loopback.Fabric `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Result 传输层导出结果
type Result struct {
	fx.Out

	Endpoint  *loopback.Endpoint
	Transport interfaces.Transport
}

// NewFromParams 创建本 PE 的传输端点
func NewFromParams(p Params) Result {
	fabric := p.Fabric
	if fabric == nil {
		log.Debug("no shared fabric supplied, using a private one")
		fabric = loopback.NewFabric()
	}
	ep := fabric.Endpoint()

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			ep.Detach()
			return nil
		},
	})

	return Result{
		Endpoint:  ep,
		Transport: ep,
	}
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(NewFromParams),
	)
}
