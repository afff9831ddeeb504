// Package engine 定义 rendezvous 存储的键值引擎接口
//
// 实现：
//
//	engine/memory - 进程内 map（默认，作业结束即弃）
//	engine/badger - BadgerDB（可落盘，也支持纯内存模式）
//
// 实现必须是并发安全的，Insert 必须是原子的。
package engine
