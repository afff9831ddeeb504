//go:build !unix

package heapx

// DefaultAllocator 返回平台默认分配器
func DefaultAllocator() Allocator {
	return GoAllocator{}
}
