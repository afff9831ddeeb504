package lifecycle

import (
	"go.uber.org/fx"
)

// Module 返回 Fx 模块
//
// 协调器随 Fx 应用停止而停止，解除仍在 WaitFor 中阻塞的调用。
func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(NewCoordinator),
		fx.Invoke(func(lc fx.Lifecycle, c *Coordinator) {
			lc.Append(fx.StopHook(c.Stop))
		}),
	)
}
