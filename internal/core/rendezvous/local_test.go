package rendezvous

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

func TestLocalClient_Job(t *testing.T) {
	const size = 3
	s := testStore(t, size)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	infos := make([]interfaces.BootstrapInfo, size)
	for i := 0; i < size; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewLocalClient(s, "localhost", nil)

			info, err := c.Init(ctx)
			if !assert.NoError(t, err) {
				return
			}
			infos[i] = info

			assert.NoError(t, c.Publish(ctx, info.Rank.String(), []byte(info.Rank.String())))
			assert.NoError(t, c.Barrier(ctx))

			// 屏障之后所有值都已发布
			for r := types.Rank(0); int(r) < size; r++ {
				v, err := c.Lookup(ctx, r.String(), false)
				assert.NoError(t, err)
				assert.Equal(t, []byte(r.String()), v)
			}
			assert.NoError(t, c.Finalize(ctx, false))
			assert.ErrorIs(t, c.Barrier(ctx), ErrNotJoined)
		}(i)
	}
	wg.Wait()

	for _, info := range infos {
		assert.Equal(t, size, info.LocalPeerCount)
	}
	<-s.Done()
}

func TestModule(t *testing.T) {
	t.Run("local requires store", func(t *testing.T) {
		app := fx.New(
			fx.NopLogger,
			Module(),
			fx.Invoke(func(interfaces.Rendezvous) {}),
		)
		assert.ErrorContains(t, app.Err(), ErrNoStore.Error())
	})

	t.Run("local", func(t *testing.T) {
		var rv interfaces.Rendezvous
		app := fxtest.New(t,
			Module(),
			fx.Supply(testStore(t, 1)),
			fx.Populate(&rv),
		)
		defer app.RequireStart().RequireStop()
		assert.IsType(t, &LocalClient{}, rv)
	})

	t.Run("network", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Rendezvous.Addr = "127.0.0.1:7070"
		cfg.Rendezvous.Host = "node-a"

		var rv interfaces.Rendezvous
		app := fxtest.New(t,
			Module(),
			fx.Supply(cfg),
			fx.Populate(&rv),
		)
		defer app.RequireStart().RequireStop()

		c, ok := rv.(*Client)
		require.True(t, ok)
		assert.Equal(t, "node-a", c.config.Host)
	})
}
