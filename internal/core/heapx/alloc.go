package heapx

import "unsafe"

// Allocator 本地对称堆的内存来源
type Allocator interface {
	// Map 映射至少 size 字节的可读写内存，返回长度为 size 的切片
	Map(size uint64) ([]byte, error)

	// Unmap 释放 Map 返回的内存
	Unmap(mem []byte) error
}

// GoAllocator 使用 Go 堆内存
//
// Go 的垃圾回收器不移动对象，基地址在切片存活期间保持不变。
type GoAllocator struct{}

// Map 分配内存
func (GoAllocator) Map(size uint64) ([]byte, error) {
	return make([]byte, size), nil
}

// Unmap 交由垃圾回收器回收
func (GoAllocator) Unmap([]byte) error {
	return nil
}

// baseOf 返回切片首字节地址
func baseOf(mem []byte) uintptr {
	if len(mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&mem[0]))
}
