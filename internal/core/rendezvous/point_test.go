package rendezvous

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/types"
)

// startPoint 在随机端口启动 Point
func startPoint(t *testing.T, size int, opts ...PointOption) *Point {
	t.Helper()

	p := NewPoint(testStore(t, size), PointConfig{
		ListenAddr:    "127.0.0.1:0",
		MaxServerWait: 50 * time.Millisecond,
	}, opts...)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop() })
	return p
}

// testClient 创建连接到 Point 的客户端
func testClient(t *testing.T, p *Point, host string, opts ...ClientOption) *Client {
	t.Helper()

	c, err := NewClient(ClientConfig{
		Addr:          p.Addr().String(),
		Host:          host,
		DialTimeout:   time.Second,
		MaxServerWait: 50 * time.Millisecond,
		RetryBase:     5 * time.Millisecond,
		RetryMax:      20 * time.Millisecond,
		PoolSize:      2,
		CacheSize:     16,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestPointConfig_Validate(t *testing.T) {
	cfg := DefaultPointConfig()
	assert.NoError(t, cfg.Validate())

	cfg.ListenAddr = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultPointConfig()
	cfg.MaxServerWait = 0
	assert.Error(t, cfg.Validate())
}

func TestPoint_StartStop(t *testing.T) {
	p := NewPoint(testStore(t, 1), PointConfig{ListenAddr: "127.0.0.1:0", MaxServerWait: time.Second})

	assert.ErrorIs(t, p.Stop(), ErrNotStarted)
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
	assert.NotNil(t, p.Addr())
	assert.NoError(t, p.Stop())
}

// Stop 之后到达的连接不再登记，直接关闭
func TestPoint_TrackAfterStop(t *testing.T) {
	p := NewPoint(testStore(t, 1), PointConfig{ListenAddr: "127.0.0.1:0", MaxServerWait: time.Second})
	require.NoError(t, p.Start(context.Background()))

	live, peer := net.Pipe()
	defer peer.Close()
	assert.True(t, p.track(live))
	p.mu.Lock()
	assert.Len(t, p.conns, 1)
	p.mu.Unlock()

	require.NoError(t, p.Stop())

	late, latePeer := net.Pipe()
	defer latePeer.Close()
	assert.False(t, p.track(late))
	p.mu.Lock()
	assert.NotContains(t, p.conns, late)
	p.mu.Unlock()

	_, err := late.Write([]byte{0})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestNewClient_RequiresAddr(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

// TestPoint_JobRoundTrip 完整作业：加入、交换、屏障、离开
func TestPoint_JobRoundTrip(t *testing.T) {
	const size = 4

	traffic := metrics.NewTrafficCounter(nil)
	p := startPoint(t, size, WithPointReporter(traffic))

	hosts := []string{"node-a", "node-b", "node-a", "node-b"}
	clients := make([]*Client, size)
	for i := range clients {
		clients[i] = testClient(t, p, hosts[i], WithClientCollectors(metrics.NewCollectors("")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	ranks := make([]types.Rank, size)
	errs := make([]error, size)
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			errs[i] = func() error {
				info, err := c.Init(ctx)
				if err != nil {
					return err
				}
				if info.JobSize != size || info.LocalPeerCount != 2 {
					return fmt.Errorf("unexpected info %+v", info)
				}
				ranks[i] = info.Rank

				me := int(info.Rank)
				if err := c.Publish(ctx, fmt.Sprintf("%d:k", me), []byte{byte(me)}); err != nil {
					return err
				}
				next := (me + 1) % size
				v, err := c.Lookup(ctx, fmt.Sprintf("%d:k", next), true)
				if err != nil {
					return err
				}
				if len(v) != 1 || int(v[0]) != next {
					return fmt.Errorf("rank %d read %v from %d", me, v, next)
				}
				if err := c.Barrier(ctx); err != nil {
					return err
				}
				return c.Finalize(ctx, true)
			}()
		}(i, c)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "client %d", i)
	}
	assert.ElementsMatch(t, []types.Rank{0, 1, 2, 3}, ranks)

	select {
	case <-p.Store().Done():
	default:
		t.Fatal("job not finished after all clients left")
	}
	assert.Equal(t, uint64(2), p.Store().Epoch())
	assert.Positive(t, p.RequestsReceived())
	assert.Positive(t, traffic.ForOp(OpPublish).TotalIn)
	assert.Positive(t, traffic.Totals().TotalOut)
}

func TestClient_Errors(t *testing.T) {
	p := startPoint(t, 2)
	c := testClient(t, p, "h")
	ctx := context.Background()

	t.Run("not joined", func(t *testing.T) {
		assert.ErrorIs(t, c.Barrier(ctx), ErrNotJoined)
		assert.ErrorIs(t, c.Finalize(ctx, false), ErrNotJoined)
	})

	t.Run("lookup without wait", func(t *testing.T) {
		_, err := c.Lookup(ctx, "missing", false)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("conflicting publish", func(t *testing.T) {
		require.NoError(t, c.Publish(ctx, "k", []byte("a")))
		assert.ErrorIs(t, c.Publish(ctx, "k", []byte("b")), ErrKeyConflict)
	})

	t.Run("blocking lookup outlives server wait", func(t *testing.T) {
		other := testClient(t, p, "h")
		go func() {
			time.Sleep(150 * time.Millisecond)
			_ = other.Publish(context.Background(), "late", []byte("v"))
		}()

		lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		v, err := c.Lookup(lctx, "late", true)
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	})

	t.Run("blocking lookup ends with caller context", func(t *testing.T) {
		lctx, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
		defer cancel()
		_, err := c.Lookup(lctx, "never", true)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_RetriesUntilPointUp(t *testing.T) {
	c, err := NewClient(ClientConfig{
		Addr:          "127.0.0.1:1",
		DialTimeout:   50 * time.Millisecond,
		MaxServerWait: 50 * time.Millisecond,
		RetryBase:     5 * time.Millisecond,
		RetryMax:      10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Init(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
