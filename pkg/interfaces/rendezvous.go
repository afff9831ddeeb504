// Package interfaces 定义 go-pgas 公共接口
//
// 本文件定义 Rendezvous 接口，对应 internal/core/rendezvous/ 实现。
package interfaces

import (
	"context"

	"github.com/dep2p/go-pgas/pkg/types"
)

// BootstrapInfo rendezvous 服务在引导时报告的作业信息
type BootstrapInfo struct {
	// Rank 本进程编号
	Rank types.Rank

	// JobSize 作业中进程总数
	JobSize int

	// LocalPeerCount 同一节点上的进程数
	LocalPeerCount int

	// LocalPeers 同一节点上的进程（升序）
	LocalPeers []types.Rank

	// Namespace 作业命名空间
	Namespace string
}

// Rendezvous 键值交换与屏障服务
//
// 所有方法都具有集合语义：作业中每个进程以相同顺序调用。
//
// 架构位置：Core Layer
// 实现位置：internal/core/rendezvous/
//
// 使用示例:
//
//	info, err := rv.Init(ctx)
//	rv.Publish(ctx, "0:heapx:0:base", value)
//	v, err := rv.Lookup(ctx, "1:heapx:0:base", true)
//	rv.Finalize(ctx, false)
type Rendezvous interface {
	// Init 加入作业并返回本进程的作业信息
	Init(ctx context.Context) (BootstrapInfo, error)

	// Barrier 阻塞直到作业中所有进程都到达
	Barrier(ctx context.Context) error

	// Publish 发布键值对
	//
	// 每个键只有一个发布者。
	Publish(ctx context.Context, key string, value []byte) error

	// Lookup 查找键值
	//
	// wait 为 true 时阻塞直到键被发布（或 ctx 结束），
	// 为 false 时键不存在立即返回错误。
	Lookup(ctx context.Context, key string, wait bool) ([]byte, error)

	// Finalize 离开作业
	//
	// embedBarrier 为 true 时在离开握手中嵌入一次同步屏障。
	Finalize(ctx context.Context, embedBarrier bool) error
}
