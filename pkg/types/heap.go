package types

import "fmt"

// HeapDescriptor 某个 (堆索引, 所属进程) 对的对称堆描述
//
// 发布前由所属进程持有；交换后其他进程持有只读副本。
type HeapDescriptor struct {
	// Base 堆基地址（对其他进程而言是不透明值）
	Base uintptr

	// Size 堆大小（字节）
	Size uint64
}

// Contains 检查地址是否落在堆内
func (d HeapDescriptor) Contains(addr uintptr) bool {
	return d.Size > 0 && addr >= d.Base && uint64(addr-d.Base) < d.Size
}

// End 返回堆末尾（不含）地址
func (d HeapDescriptor) End() uintptr {
	return d.Base + uintptr(d.Size)
}

// String 返回描述的字符串表示
func (d HeapDescriptor) String() string {
	return fmt.Sprintf("%#x+%d", d.Base, d.Size)
}

// HeapKey 堆表索引：(堆索引, 所属进程)
type HeapKey struct {
	Heap  int
	Owner Rank
}

// String 返回键的字符串表示
func (k HeapKey) String() string {
	return fmt.Sprintf("heap#%d@pe%d", k.Heap, k.Owner)
}
