//go:build unix

package heapx

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator 使用匿名私有映射
//
// 映射长度向上取整到页大小；返回的切片长度为请求大小。
type MmapAllocator struct{}

// Map 映射内存
func (MmapAllocator) Map(size uint64) ([]byte, error) {
	page := uint64(unix.Getpagesize())
	length := (size + page - 1) / page * page
	if length == 0 {
		length = page
	}

	mem, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", length, err)
	}
	return mem[:size], nil
}

// Unmap 解除映射
func (MmapAllocator) Unmap(mem []byte) error {
	if cap(mem) == 0 {
		return nil
	}
	return unix.Munmap(mem[:cap(mem)])
}

// DefaultAllocator 返回平台默认分配器
func DefaultAllocator() Allocator {
	return MmapAllocator{}
}
