package heapx

import (
	"fmt"

	"github.com/dep2p/go-pgas/pkg/types"
)

// Table 对称堆表：(堆索引, 所属进程) → 堆描述符
//
// 交换阶段由单个 goroutine 填充；交换完成后只读，可被任意 goroutine 并发读取。
type Table struct {
	nheaps int
	npes   int
	me     types.Rank

	entries []types.HeapDescriptor
	valid   []bool
}

// NewTable 创建空的堆表
func NewTable(nheaps, npes int, me types.Rank) *Table {
	return &Table{
		nheaps:  nheaps,
		npes:    npes,
		me:      me,
		entries: make([]types.HeapDescriptor, nheaps*npes),
		valid:   make([]bool, nheaps*npes),
	}
}

func (t *Table) index(heap int, owner types.Rank) (int, error) {
	if heap < 0 || heap >= t.nheaps {
		return 0, fmt.Errorf("%w: %d of %d", types.ErrInvalidHeapIndex, heap, t.nheaps)
	}
	if !owner.Valid(t.npes) {
		return 0, fmt.Errorf("%w: %d of %d", types.ErrRankOutOfRange, owner, t.npes)
	}
	return heap*t.npes + int(owner), nil
}

// Set 记录描述符
func (t *Table) Set(heap int, owner types.Rank, d types.HeapDescriptor) error {
	i, err := t.index(heap, owner)
	if err != nil {
		return err
	}
	t.entries[i] = d
	t.valid[i] = true
	return nil
}

// Get 返回描述符；条目尚未有效时 ok 为 false
func (t *Table) Get(heap int, owner types.Rank) (types.HeapDescriptor, bool) {
	i, err := t.index(heap, owner)
	if err != nil || !t.valid[i] {
		return types.HeapDescriptor{}, false
	}
	return t.entries[i], true
}

// Valid 条目是否有效
func (t *Table) Valid(heap int, owner types.Rank) bool {
	_, ok := t.Get(heap, owner)
	return ok
}

// Len 返回有效条目数
func (t *Table) Len() int {
	n := 0
	for _, v := range t.valid {
		if v {
			n++
		}
	}
	return n
}

// Complete 是否全部 nheaps × npes 条目有效
func (t *Table) Complete() bool {
	return t.Len() == t.nheaps*t.npes
}

// NumHeaps 返回堆数量
func (t *Table) NumHeaps() int { return t.nheaps }

// NumPEs 返回进程数量
func (t *Table) NumPEs() int { return t.npes }

// Me 返回本进程编号
func (t *Table) Me() types.Rank { return t.me }

// Local 返回本进程第 heap 个堆的描述符
func (t *Table) Local(heap int) (types.HeapDescriptor, bool) {
	return t.Get(heap, t.me)
}

// HeapOf 返回包含本地地址 addr 的堆索引与偏移
func (t *Table) HeapOf(addr uintptr) (heap int, offset uint64, ok bool) {
	for h := 0; h < t.nheaps; h++ {
		d, valid := t.Local(h)
		if valid && d.Contains(addr) {
			return h, uint64(addr - d.Base), true
		}
	}
	return 0, 0, false
}

// Translate 将本地对称地址转换为进程 pe 上的对应地址
//
//	remote = remote_base + (addr - local_base)
func (t *Table) Translate(heap int, addr uintptr, pe types.Rank) (uintptr, error) {
	local, ok := t.Local(heap)
	if !ok {
		return 0, fmt.Errorf("%w: local heap %d", ErrIncompleteTable, heap)
	}
	if !local.Contains(addr) {
		return 0, fmt.Errorf("%w: %#x not in heap %d (%s)", types.ErrAddressOutOfHeap, addr, heap, local)
	}
	remote, ok := t.Get(heap, pe)
	if !ok {
		return 0, fmt.Errorf("%w: heap %d of PE %d", ErrIncompleteTable, heap, pe)
	}
	offset := uint64(addr - local.Base)
	if offset >= remote.Size {
		return 0, fmt.Errorf("%w: offset %d beyond heap %d of PE %d (%d bytes)",
			types.ErrAddressOutOfHeap, offset, heap, pe, remote.Size)
	}
	return remote.Base + uintptr(offset), nil
}

// Snapshot 返回所有有效条目的拷贝
func (t *Table) Snapshot() map[types.HeapKey]types.HeapDescriptor {
	out := make(map[types.HeapKey]types.HeapDescriptor, t.Len())
	for h := 0; h < t.nheaps; h++ {
		for pe := 0; pe < t.npes; pe++ {
			if d, ok := t.Get(h, types.Rank(pe)); ok {
				out[types.HeapKey{Heap: h, Owner: types.Rank(pe)}] = d
			}
		}
	}
	return out
}
