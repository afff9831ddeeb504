// Package types 定义 go-pgas 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 pgas 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go      - Rank, ContextID
//   - enums.go    - MutexPolicy, HeapField
//   - identity.go - ProcessIdentity（进程在作业中的身份）
//   - heap.go     - HeapDescriptor, HeapKey
//   - errors.go   - 公共错误定义
//
// # 不可变性
//
// ProcessIdentity 和 HeapDescriptor 在引导完成后不再修改，
// 可以在任意 goroutine 中无锁并发读取。
package types
