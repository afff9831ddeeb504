// Package progress 实现后台进度引擎
//
// 配置为需要进度线程的进程启动恰好一个 goroutine，循环执行
// "推进传输层 → 休眠 delay"，直到观察到停止标志。停止延迟不超过
// 一次休眠加一次推进调用的时长。
//
// 是否需要进度线程由 rank 列表配置决定：
//
//	"all"    每个进程都启动
//	"0,3,5"  只有列出的进程启动
//	""       不启动，由应用调用传输层推进
package progress
