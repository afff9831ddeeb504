// Package rendezvous 实现作业引导用的 rendezvous 服务
//
// rendezvous 服务为固定规模的作业提供：
//   - 加入：按到达顺序分配 rank，按主机名分组本地对等进程
//   - 发布/查找：单写者键值交换，查找可阻塞到键被发布
//   - 屏障：按代次的全作业屏障
//   - 离开：可嵌入一次屏障的离开握手
//
// # 组件
//
//	Store        作业状态，值通过 storage/kv 持久化（memory 或 badger 引擎）
//	Point        TCP 服务端，承载一个 Store
//	Client       网络客户端，连接池 + 有界服务端等待 + 退避重试 + LRU 缓存
//	LocalClient  进程内客户端，直接绑定 Store
//
// # 线路格式
//
// 每帧为 varint 长度前缀 + protobuf structpb.Struct：
//
//	+----------------+---------------------------+
//	| uvarint length | structpb.Struct (proto)   |
//	+----------------+---------------------------+
//
// 请求字段：op, rank, host, key, value(base64), wait, epoch, embed
// 响应字段：status, error, value(base64), rank, job_size, local_peers, namespace
//
// # 阻塞查找
//
// 服务端对每个阻塞请求最多等待 MaxServerWait，超时返回 pending；
// 客户端以指数退避重试，直到调用方 context 结束。
//
// # 键空间
//
//	j/<namespace>/k/<key>      已发布的值
//	j/<namespace>/m/h/<rank>   加入的主机名
package rendezvous
