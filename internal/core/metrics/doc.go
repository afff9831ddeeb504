// Package metrics 提供运行时监控指标
//
// 两类指标：
//   - Collectors: prometheus 指标（fence/quiet 调用、进度轮询、
//     rendezvous 操作与等待时长、对称堆字节数）
//   - TrafficCounter: rendezvous 线路流量统计（总量/按操作，含速率）
//
// 每个运行时持有独立的 prometheus.Registry，同一进程内的多个 PE
// 不会发生重复注册。Collectors 的方法对 nil 接收者是空操作，
// 关闭指标时组件无需判空。
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module(),
//	    fx.Invoke(func(c *metrics.Collectors) {
//	        c.ObserveFence()
//	    }),
//	)
package metrics
