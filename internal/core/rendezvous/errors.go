package rendezvous

import "errors"

// 预定义错误
var (
	// ErrNotFound 键尚未发布
	ErrNotFound = errors.New("rendezvous: key not found")

	// ErrKeyConflict 键已由其他值发布
	ErrKeyConflict = errors.New("rendezvous: key already published with a different value")

	// ErrJobFull 作业已满员
	ErrJobFull = errors.New("rendezvous: job is full")

	// ErrInvalidJobSize 无效的作业规模
	ErrInvalidJobSize = errors.New("rendezvous: invalid job size")

	// ErrInvalidRank 无效的 rank
	ErrInvalidRank = errors.New("rendezvous: invalid rank")

	// ErrInvalidEpoch 屏障代次超前
	ErrInvalidEpoch = errors.New("rendezvous: barrier epoch ahead of job")

	// ErrNotJoined 尚未加入作业
	ErrNotJoined = errors.New("rendezvous: not joined")

	// ErrPending 服务端等待超时，客户端应重试
	ErrPending = errors.New("rendezvous: pending")

	// ErrUnavailable 服务不可用
	ErrUnavailable = errors.New("rendezvous: service unavailable")

	// ErrInternalError 内部错误
	ErrInternalError = errors.New("rendezvous: internal error")

	// ErrMessageTooLarge 消息过大
	ErrMessageTooLarge = errors.New("rendezvous: message too large")

	// ErrInvalidMessage 无效消息
	ErrInvalidMessage = errors.New("rendezvous: invalid message")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("rendezvous: already started")

	// ErrNotStarted 未启动
	ErrNotStarted = errors.New("rendezvous: not started")

	// ErrNoStore 进程内模式缺少共享 Store
	ErrNoStore = errors.New("rendezvous: local mode requires a shared store")
)
