package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-pgas/internal/core/transport/loopback"
	"github.com/dep2p/go-pgas/pkg/interfaces"
)

type oneHeap struct{}

func (oneHeap) HeapOf(addr uintptr) (int, uint64, bool) {
	return 0, uint64(addr), addr < 8
}

func TestModule_SharedFabric(t *testing.T) {
	fabric := loopback.NewFabric()

	var ep *loopback.Endpoint
	var tr interfaces.Transport
	app := fxtest.New(t,
		fx.Supply(fabric),
		Module(),
		fx.Populate(&ep, &tr),
	)
	app.RequireStart()

	require.NotNil(t, ep)
	assert.Same(t, ep, tr)

	// 另一个端点可以读取本端点挂接的堆
	ep.Attach(0, [][]byte{{1, 2, 3, 4, 5, 6, 7, 8}}, oneHeap{})
	peer := fabric.Endpoint()
	peer.Attach(1, [][]byte{make([]byte, 8)}, oneHeap{})

	dest := make([]byte, 2)
	c := peer.DefaultContext()
	require.NoError(t, peer.Get(c, dest, 3, 0))
	require.NoError(t, peer.Fence(c))
	assert.Equal(t, []byte{4, 5}, dest)

	// 停止后摘除
	app.RequireStop()
	require.NoError(t, peer.Get(c, dest, 3, 0))
	assert.ErrorIs(t, peer.Fence(c), loopback.ErrNotRegistered)
}

func TestModule_PrivateFabric(t *testing.T) {
	var tr interfaces.Transport
	app := fxtest.New(t, Module(), fx.Populate(&tr))
	defer app.RequireStart().RequireStop()

	assert.NotNil(t, tr.DefaultContext())
}
