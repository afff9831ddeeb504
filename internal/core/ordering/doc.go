// Package ordering 实现 fence/quiet 排序原语
//
// Fence 保证同一上下文上、发往同一目标进程的先前操作在后续操作之前完成；
// Quiet 等待上下文上所有未完成操作完成。FenceTest 是 Fence 的非阻塞检查。
//
// 每次调用都经过 Guard，按 MutexPolicy 决定是否持有进程级通信互斥锁。
// Fence 与 FenceTest 使用 MutexNoProtect：上下文只由一个 goroutine 使用。
package ordering
