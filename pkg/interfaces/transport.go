// Package interfaces 定义 go-pgas 公共接口
//
// 本文件定义 Transport 接口，对应 internal/core/transport/ 实现。
package interfaces

import "github.com/dep2p/go-pgas/pkg/types"

// Context 通信上下文句柄
//
// 上下文划定一组远程内存操作及其完成/排序状态。
// 每个上下文只由一个 goroutine 发起操作。
type Context interface {
	// ID 返回上下文标识
	ID() types.ContextID
}

// Transport RMA 传输层接口
//
// 所有操作都已按 rank 寻址、面向字节；本核心不做任何序列化。
//
// 实现位置：internal/core/transport/loopback/
type Transport interface {
	// DefaultContext 返回默认上下文
	DefaultContext() Context

	// Get 发起从目标进程 src 地址读取 len(dest) 字节的操作
	//
	// 操作只是被发起，完成由 Fence/Quiet 或 Progress 推进。
	Get(c Context, dest []byte, src uintptr, target types.Rank) error

	// Fence 阻塞直到上下文上之前发起的所有操作完成
	Fence(c Context) error

	// FenceTest 非阻塞地检查 Fence 条件是否已满足
	FenceTest(c Context) bool

	// Quiet 阻塞直到上下文上所有未完成操作完成并可见
	Quiet(c Context) error

	// Progress 推进进行中的操作
	Progress()
}
