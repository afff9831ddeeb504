// Package badger 提供基于 BadgerDB 的存储引擎
//
// pgas serve 指定 --data-dir 时使用，作业命名空间下已发布的键值
// 在 rendezvous point 重启后仍可查找。未指定目录时以纯内存模式运行。
package badger
