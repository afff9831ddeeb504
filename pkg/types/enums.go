package types

// ============================================================================
//                              MutexPolicy - 互斥保护策略
// ============================================================================

// MutexPolicy 每次调用的互斥保护策略
//
// 不是存储的实体，而是调用约定：选择调用传输层之前是否获取
// 进程级通信互斥锁。
type MutexPolicy int

const (
	// MutexProtected 调用前获取进程级通信互斥锁
	MutexProtected MutexPolicy = iota
	// MutexNoProtect 不加锁直接调用
	//
	// 仅当调用方能保证没有其他线程并发访问同一上下文时安全。
	MutexNoProtect
)

// String 返回策略的字符串表示
func (p MutexPolicy) String() string {
	switch p {
	case MutexProtected:
		return "protected"
	case MutexNoProtect:
		return "noprotect"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              HeapField - 堆描述字段
// ============================================================================

// HeapField 发布到 rendezvous 服务的堆描述字段
type HeapField int

const (
	// HeapFieldBase 堆基地址
	HeapFieldBase HeapField = iota
	// HeapFieldSize 堆大小
	HeapFieldSize
)

// String 返回字段名，同时也是 rendezvous 键的最后一段
func (f HeapField) String() string {
	switch f {
	case HeapFieldBase:
		return "base"
	case HeapFieldSize:
		return "size"
	default:
		return "unknown"
	}
}
