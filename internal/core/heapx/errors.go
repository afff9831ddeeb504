package heapx

import "errors"

var (
	// ErrFetchFailed 无法从 rendezvous 拉取某个进程的堆描述符
	ErrFetchFailed = errors.New("heap descriptor fetch failed")

	// ErrPublishFailed 无法发布本地堆描述符
	ErrPublishFailed = errors.New("heap descriptor publish failed")

	// ErrNotAllocated 尚未映射本地对称堆
	ErrNotAllocated = errors.New("symmetric heaps not allocated")

	// ErrAlreadyAllocated 本地对称堆已映射
	ErrAlreadyAllocated = errors.New("symmetric heaps already allocated")

	// ErrInvalidValue rendezvous 中的值不是 8 字节
	ErrInvalidValue = errors.New("invalid heap descriptor value")

	// ErrIncompleteTable 堆表缺少条目
	ErrIncompleteTable = errors.New("heap table incomplete")
)
