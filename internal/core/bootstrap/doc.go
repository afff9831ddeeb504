// Package bootstrap 实现进程引导协调器
//
// Init 是集合操作：通过 rendezvous 服务获取本进程的 rank、作业规模
// 与本节点对等进程集合，校验作业信息一致后执行一次全局屏障。
// Finalize 幂等：显式调用与进程退出路径的隐式调用可以先后发生，
// 关闭副作用（rendezvous 终结、对称堆释放）最多执行一次。
package bootstrap
