package metrics

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Result Metrics 导出结果
type Result struct {
	fx.Out

	Collectors *Collectors
	Traffic    *TrafficCounter
	Reporter   Reporter
}

// provide 按配置创建指标；关闭时 Collectors 为 nil
func provide(p Params) (Result, error) {
	traffic := NewTrafficCounter(nil)
	res := Result{Traffic: traffic, Reporter: traffic}

	if p.Config != nil && !p.Config.Metrics.Enable {
		return res, nil
	}

	ns := DefaultNamespace
	if p.Config != nil {
		ns = p.Config.Metrics.Namespace
	}
	res.Collectors = NewCollectors(ns)
	if err := res.Collectors.RegisterTraffic(traffic); err != nil {
		return Result{}, fmt.Errorf("register traffic metrics: %w", err)
	}
	return res, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(provide),
	)
}
