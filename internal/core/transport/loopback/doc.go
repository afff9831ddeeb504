// Package loopback 实现同一地址空间内多个 PE 之间的传输层
//
// Fabric 保存每个 PE 注册的对称堆；Endpoint 是某个 PE 的 Transport。
// Get 通过本 PE 的堆表把本地对称地址解析为 (堆, 偏移)，登记一次
// 待完成的拷贝；Progress、Fence 和 Quiet 从目标 PE 的同一堆同一偏移
// 完成拷贝。
//
//	fabric := loopback.NewFabric()
//	ep := fabric.Endpoint()
//	// 堆表交换之后
//	ep.Attach(rank, heaps, table)
package loopback
