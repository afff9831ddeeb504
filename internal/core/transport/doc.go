// Package transport 提供 RMA 传输层的 Fx 装配
//
// 当前实现为 loopback：同一进程内的多个 PE 共享一个 Fabric。
// 运行时在堆表交换之后把本 PE 挂接到 Fabric，在终结时摘除。
//
// # Fx 模块
//
//	fx.New(
//	    fx.Supply(fabric),
//	    transport.Module(),
//	)
//
// 未提供 Fabric 时为单 PE 作业创建私有 Fabric。
package transport
