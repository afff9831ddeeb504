package bootstrap

import "errors"

var (
	// ErrInconsistentWorld rendezvous 报告的作业信息不一致
	ErrInconsistentWorld = errors.New("inconsistent world reported by rendezvous")

	// ErrAlreadyRunning 已初始化且未终结
	ErrAlreadyRunning = errors.New("bootstrap already running")

	// ErrInvalidPeerList 本地对等进程列表无法解析
	ErrInvalidPeerList = errors.New("invalid local peer list")
)
