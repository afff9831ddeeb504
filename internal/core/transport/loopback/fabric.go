package loopback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dep2p/go-pgas/pkg/types"
)

var (
	// ErrNotRegistered 目标 PE 未注册对称堆
	ErrNotRegistered = errors.New("loopback: target pe has no registered heaps")

	// ErrNoResolver 堆表尚未就绪
	ErrNoResolver = errors.New("loopback: symmetric heap table not ready")

	// ErrOutOfRange 读取越过目标堆末尾
	ErrOutOfRange = errors.New("loopback: read past end of heap")
)

// Fabric 进程内共享的对称堆注册表
type Fabric struct {
	mu    sync.RWMutex
	heaps map[types.Rank][][]byte
}

// NewFabric 创建 Fabric
func NewFabric() *Fabric {
	return &Fabric{heaps: make(map[types.Rank][][]byte)}
}

// Register 注册 PE 的对称堆
func (f *Fabric) Register(pe types.Rank, heaps [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heaps[pe] = heaps
}

// Unregister 移除 PE 的对称堆
func (f *Fabric) Unregister(pe types.Rank) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.heaps, pe)
}

// Endpoint 创建传输端点
func (f *Fabric) Endpoint() *Endpoint {
	return newEndpoint(f)
}

// read 从目标堆拷贝到 dest
func (f *Fabric) read(dest []byte, pe types.Rank, heap int, off uint64) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	heaps, ok := f.heaps[pe]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotRegistered, pe)
	}
	if heap < 0 || heap >= len(heaps) {
		return fmt.Errorf("%w: heap %d on pe %d", types.ErrInvalidHeapIndex, heap, pe)
	}
	mem := heaps[heap]
	end := off + uint64(len(dest))
	if end > uint64(len(mem)) {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, off, end, len(mem))
	}
	copy(dest, mem[off:end])
	return nil
}
