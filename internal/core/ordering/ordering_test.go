package ordering

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
	"github.com/dep2p/go-pgas/tests/mocks"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLevel("fence", slog.LevelDebug)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel("fence", slog.LevelInfo)
	})
	return &buf
}

func TestFence_DrainsPendingOps(t *testing.T) {
	tr := mocks.NewMockTransport()
	o := New(tr)
	c := &mocks.MockContext{IDValue: 3}

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Get(c, make([]byte, 8), 0x1000, 1))
	}
	assert.False(t, o.FenceTest(c))

	require.NoError(t, o.Fence(c))
	assert.Zero(t, tr.Pending(c))
	assert.True(t, o.FenceTest(c))
	assert.Equal(t, 1, tr.FenceCalls)
}

func TestFence_ContextsAreIndependent(t *testing.T) {
	tr := mocks.NewMockTransport()
	o := New(tr)
	a := &mocks.MockContext{IDValue: 1}
	b := &mocks.MockContext{IDValue: 2}

	require.NoError(t, tr.Get(a, make([]byte, 4), 0, 0))
	require.NoError(t, tr.Get(b, make([]byte, 4), 0, 0))

	require.NoError(t, o.Fence(a))
	assert.True(t, o.FenceTest(a))
	assert.False(t, o.FenceTest(b))
}

func TestFenceDefault(t *testing.T) {
	buf := captureLog(t)

	tr := mocks.NewMockTransport()
	o := New(tr)

	require.NoError(t, tr.Get(tr.DefaultContext(), make([]byte, 1), 0, 0))
	assert.False(t, o.FenceTestDefault())
	require.NoError(t, o.FenceDefault())
	assert.True(t, o.FenceTestDefault())

	assert.Contains(t, buf.String(), "fence()")
	// 默认上下文的 fence_test 不记日志
	assert.NotContains(t, buf.String(), "ctx_fence_test")
}

func TestFence_Logging(t *testing.T) {
	buf := captureLog(t)

	tr := mocks.NewMockTransport()
	o := New(tr)
	c := &mocks.MockContext{IDValue: 42}

	require.NoError(t, o.Fence(c))
	assert.True(t, o.FenceTest(c))

	out := buf.String()
	assert.Contains(t, out, "ctx_fence(ctx=42)")
	assert.Contains(t, out, "ctx_fence_test(ctx=42) -> true")
	assert.Contains(t, out, "subsystem=fence")
}

func TestFence_PropagatesTransportError(t *testing.T) {
	tr := mocks.NewMockTransport()
	boom := errors.New("transport down")
	tr.FenceFunc = func(interfaces.Context) error { return boom }
	tr.QuietFunc = func(interfaces.Context) error { return boom }

	o := New(tr)
	assert.ErrorIs(t, o.FenceDefault(), boom)
	assert.ErrorIs(t, o.QuietDefault(), boom)
}

func TestQuiet(t *testing.T) {
	tr := mocks.NewMockTransport()
	o := New(tr)
	c := &mocks.MockContext{IDValue: 9}

	require.NoError(t, tr.Get(c, make([]byte, 16), 0, 2))
	require.NoError(t, o.Quiet(c))
	assert.True(t, o.FenceTest(c))
	assert.Equal(t, 1, tr.QuietCalls)

	require.NoError(t, o.QuietDefault())
	assert.Equal(t, 2, tr.QuietCalls)
}

func TestGuard(t *testing.T) {
	o := New(mocks.NewMockTransport())

	t.Run("returns fn error", func(t *testing.T) {
		boom := errors.New("boom")
		assert.ErrorIs(t, o.Guard(types.MutexNoProtect, func() error { return boom }), boom)
		assert.ErrorIs(t, o.Guard(types.MutexProtected, func() error { return boom }), boom)
	})

	t.Run("protected calls are serialized", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			active  int
			maxSeen int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = o.Guard(types.MutexProtected, func() error {
					mu.Lock()
					active++
					if active > maxSeen {
						maxSeen = active
					}
					mu.Unlock()

					time.Sleep(time.Millisecond)

					mu.Lock()
					active--
					mu.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("noprotect does not take the mutex", func(t *testing.T) {
		o.mu.Lock()
		defer o.mu.Unlock()

		done := make(chan struct{})
		go func() {
			_ = o.Guard(types.MutexNoProtect, func() error { return nil })
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("noprotect call blocked on the communication mutex")
		}
	})
}

func TestOrdering_Metrics(t *testing.T) {
	tr := mocks.NewMockTransport()
	m := metrics.NewCollectors("")
	o := New(tr, WithCollectors(m))
	c := &mocks.MockContext{IDValue: 1}

	require.NoError(t, o.Fence(c))
	o.FenceTest(c)
	require.NoError(t, o.Quiet(c))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["pgas_ordering_fence_total"])
	assert.True(t, names["pgas_ordering_fence_test_total"])
	assert.True(t, names["pgas_ordering_quiet_total"])
}
