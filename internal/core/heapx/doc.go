// Package heapx 实现对称堆注册表
//
// 每个进程映射 nheaps 个本地对称堆，并通过 rendezvous 服务发布
// 每个堆的基地址与大小；随后拉取所有其他进程的描述符，构建
// nheaps × job_size 的堆表。堆表完整之前不允许任何 RMA 操作。
//
// 键格式：
//
//	<rank>:heapx:<heap>:base
//	<rank>:heapx:<heap>:size
//
// 值为 8 字节大端序无符号整数。
package heapx
