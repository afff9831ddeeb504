package pgas

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 运行时生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotInitialized 运行时尚未初始化
	ErrNotInitialized = errors.New("runtime not initialized")

	// ErrAlreadyInitialized 运行时已初始化
	ErrAlreadyInitialized = errors.New("runtime already initialized")

	// ErrFinalized 运行时已终结，不能再次初始化
	ErrFinalized = errors.New("runtime finalized")

	// ────────────────────────────────────────────────────────────────────────
	// 集合阶段错误（致命）
	// ────────────────────────────────────────────────────────────────────────

	// ErrBootstrapFailed 引导失败
	ErrBootstrapFailed = errors.New("bootstrap failed")

	// ErrHeapExchangeFailed 对称堆映射或交换失败
	ErrHeapExchangeFailed = errors.New("symmetric heap exchange failed")

	// ErrProgressFailed 进度线程启动或回收失败
	ErrProgressFailed = errors.New("progress thread failure")

	// ────────────────────────────────────────────────────────────────────────
	// 参数错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidPE 目标 PE 超出作业范围
	ErrInvalidPE = errors.New("invalid PE")

	// ErrNilOption 选项参数为空
	ErrNilOption = errors.New("nil option value")
)
