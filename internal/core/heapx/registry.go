package heapx

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-pgas/internal/core/lifecycle"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("heap")

// DefaultParallelism 交换阶段默认并发拉取数
const DefaultParallelism = 16

// Registry 对称堆注册表
type Registry struct {
	rv          interfaces.Rendezvous
	alloc       Allocator
	parallelism int
	lifecycle   *lifecycle.Coordinator

	mu       sync.Mutex
	heaps    [][]byte
	local    []types.HeapDescriptor
	table    *Table
	released bool
}

// Option 注册表选项
type Option func(*Registry)

// WithAllocator 设置内存来源
func WithAllocator(a Allocator) Option {
	return func(r *Registry) {
		r.alloc = a
	}
}

// WithParallelism 设置交换阶段并发拉取上限
func WithParallelism(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithLifecycle 发布前等待引导完成的身份就绪信号
func WithLifecycle(lc *lifecycle.Coordinator) Option {
	return func(r *Registry) {
		r.lifecycle = lc
	}
}

// NewRegistry 创建对称堆注册表
func NewRegistry(rv interfaces.Rendezvous, opts ...Option) *Registry {
	r := &Registry{
		rv:          rv,
		alloc:       DefaultAllocator(),
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allocate 映射本地对称堆
func (r *Registry) Allocate(sizes []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.heaps) > 0 {
		return ErrAlreadyAllocated
	}

	heaps := make([][]byte, 0, len(sizes))
	local := make([]types.HeapDescriptor, 0, len(sizes))
	for i, size := range sizes {
		mem, err := r.alloc.Map(size)
		if err != nil {
			for _, m := range heaps {
				_ = r.alloc.Unmap(m)
			}
			return fmt.Errorf("map heap %d: %w", i, err)
		}
		heaps = append(heaps, mem)
		local = append(local, types.HeapDescriptor{Base: baseOf(mem), Size: size})
	}

	r.heaps = heaps
	r.local = local
	r.released = false
	return nil
}

// NumHeaps 返回已映射的本地堆数量
func (r *Registry) NumHeaps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.heaps)
}

// Heap 返回第 i 个本地堆的内存
func (r *Registry) Heap(i int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.heaps) {
		return nil, fmt.Errorf("%w: %d of %d", types.ErrInvalidHeapIndex, i, len(r.heaps))
	}
	return r.heaps[i], nil
}

// Local 返回本地堆描述符
func (r *Registry) Local() []types.HeapDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.HeapDescriptor(nil), r.local...)
}

// Heaps 返回所有本地堆内存
func (r *Registry) Heaps() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.heaps...)
}

// HeapOf 返回包含本地地址 addr 的堆索引与偏移
//
// 只依赖本地描述符，交换完成前即可使用。
func (r *Registry) HeapOf(addr uintptr) (heap int, offset uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, d := range r.local {
		if d.Contains(addr) {
			return h, uint64(addr - d.Base), true
		}
	}
	return 0, 0, false
}

// Table 返回交换完成后的堆表，交换前为 nil
func (r *Registry) Table() *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table
}

// PublishAndExchange 发布本地堆描述符并拉取所有其他进程的描述符
//
// 集合操作。对前 nheaps 个堆，先发布本进程的 base/size，再以阻塞查找
// 拉取每个其他进程的 base/size。任何一次拉取失败都返回 ErrFetchFailed，
// 此时堆表不可用。设置了生命周期协调器时，先等待身份就绪。
func (r *Registry) PublishAndExchange(ctx context.Context, id types.ProcessIdentity, nheaps int) (*Table, error) {
	if r.lifecycle != nil {
		if err := r.lifecycle.WaitIdentityReady(ctx); err != nil {
			return nil, fmt.Errorf("wait identity: %w", err)
		}
	}

	r.mu.Lock()
	local := append([]types.HeapDescriptor(nil), r.local...)
	r.mu.Unlock()

	if len(local) == 0 {
		return nil, ErrNotAllocated
	}
	if nheaps <= 0 || nheaps > len(local) {
		return nil, fmt.Errorf("%w: exchange %d heaps, %d mapped", types.ErrInvalidHeapIndex, nheaps, len(local))
	}

	table := NewTable(nheaps, id.JobSize, id.Rank)
	for i := 0; i < nheaps; i++ {
		if err := table.Set(i, id.Rank, local[i]); err != nil {
			return nil, err
		}
	}

	if err := r.publish(ctx, id.Rank, local[:nheaps]); err != nil {
		return nil, err
	}

	if err := r.exchange(ctx, id, table); err != nil {
		return nil, err
	}

	for i := 0; i < nheaps; i++ {
		for pn := 0; pn < id.JobSize; pn++ {
			d, _ := table.Get(i, types.Rank(pn))
			log.Debug("FETCH", "heap", i, "pe", pn, "base", fmt.Sprintf("%#x", d.Base), "size", d.Size)
		}
	}

	r.mu.Lock()
	r.table = table
	r.mu.Unlock()
	return table, nil
}

func (r *Registry) publish(ctx context.Context, me types.Rank, local []types.HeapDescriptor) error {
	for i, d := range local {
		if err := r.rv.Publish(ctx, BaseKey(me, i), EncodeValue(uint64(d.Base))); err != nil {
			return fmt.Errorf("%w: heap %d base: %w", ErrPublishFailed, i, err)
		}
		if err := r.rv.Publish(ctx, SizeKey(me, i), EncodeValue(d.Size)); err != nil {
			return fmt.Errorf("%w: heap %d size: %w", ErrPublishFailed, i, err)
		}
		log.Debug("PUBLISH", "heap", i, "base", fmt.Sprintf("%#x", d.Base), "size", d.Size)
	}
	return nil
}

// exchange 并发拉取远程描述符
//
// 各 goroutine 只写入自己的结果槽，全部成功后再顺序填充堆表。
func (r *Registry) exchange(ctx context.Context, id types.ProcessIdentity, table *Table) error {
	type slot struct {
		heap  int
		owner types.Rank
		desc  types.HeapDescriptor
	}

	slots := make([]slot, 0, table.NumHeaps()*(id.JobSize-1))
	for i := 0; i < table.NumHeaps(); i++ {
		for pn := 0; pn < id.JobSize; pn++ {
			if types.Rank(pn) == id.Rank {
				continue
			}
			slots = append(slots, slot{heap: i, owner: types.Rank(pn)})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for k := range slots {
		s := &slots[k]
		g.Go(func() error {
			d, err := r.fetch(gctx, s.owner, s.heap)
			if err != nil {
				return fmt.Errorf("%w: heap %d from PE %d: %w", ErrFetchFailed, s.heap, s.owner, err)
			}
			s.desc = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, s := range slots {
		if err := table.Set(s.heap, s.owner, s.desc); err != nil {
			return err
		}
	}
	if !table.Complete() {
		return fmt.Errorf("%w: %d of %d entries", ErrIncompleteTable, table.Len(), table.NumHeaps()*table.NumPEs())
	}
	return nil
}

func (r *Registry) fetch(ctx context.Context, owner types.Rank, heap int) (types.HeapDescriptor, error) {
	rawBase, err := r.rv.Lookup(ctx, BaseKey(owner, heap), true)
	if err != nil {
		return types.HeapDescriptor{}, err
	}
	base, err := DecodeValue(rawBase)
	if err != nil {
		return types.HeapDescriptor{}, err
	}

	rawSize, err := r.rv.Lookup(ctx, SizeKey(owner, heap), true)
	if err != nil {
		return types.HeapDescriptor{}, err
	}
	size, err := DecodeValue(rawSize)
	if err != nil {
		return types.HeapDescriptor{}, err
	}

	return types.HeapDescriptor{Base: uintptr(base), Size: size}, nil
}

// Release 解除本地堆映射
//
// 幂等；释放后堆表被丢弃。
func (r *Registry) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released || len(r.heaps) == 0 {
		r.released = true
		return nil
	}

	var firstErr error
	for i, mem := range r.heaps {
		if err := r.alloc.Unmap(mem); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unmap heap %d: %w", i, err)
		}
	}
	r.heaps = nil
	r.local = nil
	r.table = nil
	r.released = true

	log.Debug("symmetric heaps released")
	return firstErr
}
