package rendezvous

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

// Params Rendezvous 依赖参数
type Params struct {
	fx.In

	Config     *config.Config      `optional:"true"`
	Store      *Store              `optional:"true"`
	Collectors *metrics.Collectors `optional:"true"`
	Reporter   metrics.Reporter    `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Result Rendezvous 导出结果
type Result struct {
	fx.Out

	Rendezvous interfaces.Rendezvous
}

// hostname 本节点主机名
func hostname(cfg *config.Config) string {
	if cfg != nil && cfg.Rendezvous.Host != "" {
		return cfg.Rendezvous.Host
	}
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}

// NewFromParams 按配置创建客户端
//
// 未配置地址时使用进程内客户端，需要提供共享 Store。
func NewFromParams(p Params) (Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	host := hostname(cfg)

	if cfg.Rendezvous.IsLocal() {
		if p.Store == nil {
			return Result{}, ErrNoStore
		}
		return Result{Rendezvous: NewLocalClient(p.Store, host, p.Collectors)}, nil
	}

	client, err := NewClient(ClientConfigFrom(cfg.Rendezvous, host),
		WithClientReporter(p.Reporter),
		WithClientCollectors(p.Collectors),
	)
	if err != nil {
		return Result{}, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			client.Close()
			return nil
		},
	})
	return Result{Rendezvous: client}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("rendezvous",
		fx.Provide(NewFromParams),
	)
}
