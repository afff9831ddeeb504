package rma

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
	"github.com/dep2p/go-pgas/tests/mocks"
)

// fillTransport Get 时用固定字节填充目标
func fillTransport(b byte) *mocks.MockTransport {
	tr := mocks.NewMockTransport()
	tr.GetFunc = func(_ interfaces.Context, dest []byte, _ uintptr, _ types.Rank) error {
		for i := range dest {
			dest[i] = b
		}
		return nil
	}
	return tr
}

func TestGet_ByteCount(t *testing.T) {
	tr := mocks.NewMockTransport()
	r := New(tr, nil)
	c := tr.DefaultContext()

	require.NoError(t, Get(r, c, make([]int32, 5), 0x10, 1))
	require.NoError(t, Get(r, c, make([]float64, 3), 0x20, 2))
	require.NoError(t, Get(r, c, make([]complex128, 2), 0x30, 3))
	require.NoError(t, Get(r, c, make([]uint8, 7), 0x40, 0))

	require.Len(t, tr.GetCalls, 4)
	assert.Equal(t, 20, tr.GetCalls[0].NBytes)
	assert.Equal(t, 24, tr.GetCalls[1].NBytes)
	assert.Equal(t, 32, tr.GetCalls[2].NBytes)
	assert.Equal(t, 7, tr.GetCalls[3].NBytes)
	assert.Equal(t, uintptr(0x20), tr.GetCalls[1].Src)
	assert.Equal(t, types.Rank(2), tr.GetCalls[1].Target)

	// 阻塞读取在返回前静默上下文
	assert.Equal(t, 4, tr.QuietCalls)
	assert.Zero(t, tr.Pending(c))
}

func TestGet_Empty(t *testing.T) {
	tr := mocks.NewMockTransport()
	r := New(tr, nil)

	require.NoError(t, Get[int64](r, tr.DefaultContext(), nil, 0, 0))
	require.NoError(t, r.GetMemNBI(tr.DefaultContext(), nil, 0, 0))
	assert.Empty(t, tr.GetCalls)
}

func TestG(t *testing.T) {
	tr := fillTransport(0x01)
	r := New(tr, nil)

	v, err := G[uint32](r, tr.DefaultContext(), 0x100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01010101), v)
	assert.Equal(t, 4, tr.GetCalls[0].NBytes)

	f, err := G[float32](r, tr.DefaultContext(), 0x100, 1)
	require.NoError(t, err)
	assert.NotZero(t, f)
}

func TestGetSized(t *testing.T) {
	tests := []struct {
		bits   int
		nelems int
		want   int
	}{
		{8, 4, 4},
		{16, 4, 8},
		{32, 4, 16},
		{64, 4, 32},
		{128, 4, 64},
	}

	for _, tt := range tests {
		tr := mocks.NewMockTransport()
		r := New(tr, nil)
		require.NoError(t, r.GetSized(tr.DefaultContext(), make([]byte, 64), 0, tt.nelems, tt.bits, 0))
		assert.Equal(t, tt.want, tr.GetCalls[0].NBytes, "bits=%d", tt.bits)
	}

	r := New(mocks.NewMockTransport(), nil)
	assert.ErrorIs(t, r.GetSized(nil, make([]byte, 64), 0, 1, 12, 0), ErrInvalidSize)
	assert.ErrorIs(t, r.GetSized(nil, make([]byte, 4), 0, 1, 64, 0), ErrShortBuffer)
}

func TestGetMemNBI_LeavesOpPending(t *testing.T) {
	tr := mocks.NewMockTransport()
	r := New(tr, nil)
	c := &mocks.MockContext{IDValue: 5}

	require.NoError(t, r.GetMemNBI(c, make([]byte, 8), 0, 1))
	assert.Equal(t, 1, tr.Pending(c))
	assert.Zero(t, tr.QuietCalls)
}

func TestGetMem_Error(t *testing.T) {
	tr := mocks.NewMockTransport()
	boom := errors.New("unreachable pe")
	tr.GetFunc = func(interfaces.Context, []byte, uintptr, types.Rank) error { return boom }

	r := New(tr, nil)
	assert.ErrorIs(t, r.GetMem(tr.DefaultContext(), make([]byte, 1), 0, 9), boom)
	assert.Zero(t, tr.QuietCalls)
}

type countingGuard struct {
	calls    int
	policies []types.MutexPolicy
}

func (g *countingGuard) Guard(p types.MutexPolicy, fn func() error) error {
	g.calls++
	g.policies = append(g.policies, p)
	return fn()
}

func TestGet_UsesGuard(t *testing.T) {
	g := &countingGuard{}
	tr := mocks.NewMockTransport()
	r := New(tr, g)

	require.NoError(t, r.GetMem(tr.DefaultContext(), make([]byte, 2), 0, 0))
	assert.Equal(t, 2, g.calls)
	assert.Equal(t, []types.MutexPolicy{types.MutexNoProtect, types.MutexProtected}, g.policies)

	g.policies = nil
	require.NoError(t, r.GetMemNBI(tr.DefaultContext(), make([]byte, 2), 0, 0))
	assert.Equal(t, []types.MutexPolicy{types.MutexNoProtect}, g.policies)
}

func TestBytes(t *testing.T) {
	v := []uint16{0x0102, 0x0304}
	b := Bytes(v)
	require.Len(t, b, 4)
	assert.Equal(t, uint16(0x0102), binary.NativeEndian.Uint16(b[0:2]))
	assert.Nil(t, Bytes[int32](nil))
}
