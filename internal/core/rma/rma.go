package rma

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var (
	// ErrInvalidSize 不支持的元素位宽
	ErrInvalidSize = errors.New("rma: element size must be 8, 16, 32, 64 or 128 bits")

	// ErrShortBuffer 目标缓冲区不足
	ErrShortBuffer = errors.New("rma: destination buffer too small")
)

// Guarder 按互斥策略执行调用
type Guarder interface {
	Guard(policy types.MutexPolicy, fn func() error) error
}

// directGuard 不加锁
type directGuard struct{}

func (directGuard) Guard(_ types.MutexPolicy, fn func() error) error { return fn() }

// Scalar 可按字节读取的定长类型
type Scalar interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// RMA 远程读取
type RMA struct {
	t     interfaces.Transport
	guard Guarder
}

// New 创建远程读取辅助；guard 为 nil 时不加锁
func New(t interfaces.Transport, guard Guarder) *RMA {
	if guard == nil {
		guard = directGuard{}
	}
	return &RMA{t: t, guard: guard}
}

// GetMemNBI 发起 len(dest) 字节的读取，不等待完成
func (r *RMA) GetMemNBI(c interfaces.Context, dest []byte, src uintptr, pe types.Rank) error {
	if len(dest) == 0 {
		return nil
	}
	return r.guard.Guard(types.MutexNoProtect, func() error {
		return r.t.Get(c, dest, src, pe)
	})
}

// GetMem 读取 len(dest) 字节并等待完成
//
// 读取本身不加锁，随后的 quiet 与 Ordering.Quiet 一样持有通信互斥锁。
func (r *RMA) GetMem(c interfaces.Context, dest []byte, src uintptr, pe types.Rank) error {
	if err := r.GetMemNBI(c, dest, src, pe); err != nil || len(dest) == 0 {
		return err
	}
	return r.guard.Guard(types.MutexProtected, func() error {
		return r.t.Quiet(c)
	})
}

// GetSized 读取 nelems 个 bits 位宽的元素
func (r *RMA) GetSized(c interfaces.Context, dest []byte, src uintptr, nelems, bits int, pe types.Rank) error {
	switch bits {
	case 8, 16, 32, 64, 128:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidSize, bits)
	}
	nbytes := nelems * bits / 8
	if len(dest) < nbytes {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, nbytes, len(dest))
	}
	return r.GetMem(c, dest[:nbytes], src, pe)
}

// Bytes 返回 dest 底层内存的字节视图，长度为 len(dest)*sizeof(T)
func Bytes[T Scalar](dest []T) []byte {
	if len(dest) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&dest[0])), len(dest)*int(unsafe.Sizeof(zero)))
}

// Get 读取 len(dest) 个 T
func Get[T Scalar](r *RMA, c interfaces.Context, dest []T, src uintptr, pe types.Rank) error {
	return r.GetMem(c, Bytes(dest), src, pe)
}

// G 读取单个 T
func G[T Scalar](r *RMA, c interfaces.Context, src uintptr, pe types.Rank) (T, error) {
	var v [1]T
	err := r.GetMem(c, Bytes(v[:]), src, pe)
	return v[0], err
}
