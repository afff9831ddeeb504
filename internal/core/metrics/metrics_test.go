package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-pgas/config"
)

// ============================================================================
// RateMeter
// ============================================================================

func TestRateMeter(t *testing.T) {
	mock := clock.NewMock()
	r := NewRateMeter(mock)

	r.Add(600)
	assert.Equal(t, int64(600), r.Total())
	assert.InDelta(t, 10.0, r.Rate(), 0.001)

	mock.Add(30 * time.Second)
	r.Add(600)
	assert.InDelta(t, 20.0, r.Rate(), 0.001)

	// 第一批数据滑出窗口
	mock.Add(45 * time.Second)
	assert.InDelta(t, 10.0, r.Rate(), 0.001)

	mock.Add(2 * time.Minute)
	assert.Zero(t, r.Rate())
	assert.Equal(t, int64(1200), r.Total())

	r.Reset()
	assert.Zero(t, r.Total())
}

// ============================================================================
// TrafficCounter
// ============================================================================

func TestTrafficCounter(t *testing.T) {
	tc := NewTrafficCounter(clock.NewMock())

	tc.LogSent("publish", 100)
	tc.LogSent("lookup", 20)
	tc.LogRecv("lookup", 300)

	totals := tc.Totals()
	assert.Equal(t, int64(120), totals.TotalOut)
	assert.Equal(t, int64(300), totals.TotalIn)

	lookup := tc.ForOp("lookup")
	assert.Equal(t, int64(20), lookup.TotalOut)
	assert.Equal(t, int64(300), lookup.TotalIn)
	assert.Equal(t, Stats{}, tc.ForOp("barrier"))

	assert.Len(t, tc.ByOp(), 2)

	tc.Reset()
	assert.Equal(t, int64(0), tc.Totals().TotalOut)
	assert.Empty(t, tc.ByOp())
}

func TestTrafficCounter_Concurrent(t *testing.T) {
	tc := NewTrafficCounter(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tc.LogSent("publish", 1)
				tc.LogRecv("lookup", 2)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), tc.Totals().TotalOut)
	assert.Equal(t, int64(10000), tc.ForOp("lookup").TotalIn)
}

// ============================================================================
// Collectors
// ============================================================================

func TestCollectors(t *testing.T) {
	c := NewCollectors("")

	c.ObserveFence()
	c.ObserveFence()
	c.ObserveFenceTest(true)
	c.ObserveFenceTest(false)
	c.ObserveFenceTest(false)
	c.ObserveQuiet()
	c.ObserveRendezvous("lookup", nil, time.Millisecond)
	c.ObserveRendezvous("lookup", errors.New("x"), time.Millisecond)
	c.SetHeapBytes(0, 4096)

	assert.Equal(t, 2.0, gathered(t, c, "pgas_ordering_fence_total", nil))
	assert.Equal(t, 1.0, gathered(t, c, "pgas_ordering_fence_test_total", map[string]string{"complete": "true"}))
	assert.Equal(t, 2.0, gathered(t, c, "pgas_ordering_fence_test_total", map[string]string{"complete": "false"}))
	assert.Equal(t, 1.0, gathered(t, c, "pgas_ordering_quiet_total", nil))
	assert.Equal(t, 1.0, gathered(t, c, "pgas_rendezvous_ops_total", map[string]string{"op": "lookup", "success": "false"}))
	assert.Equal(t, 4096.0, gathered(t, c, "pgas_heap_bytes", map[string]string{"heap": "0"}))

	var polls uint64 = 7
	require.NoError(t, c.RegisterPolls(func() uint64 { return polls }))
	tc := NewTrafficCounter(nil)
	tc.LogSent("publish", 42)
	require.NoError(t, c.RegisterTraffic(tc))

	assert.Equal(t, 7.0, gathered(t, c, "pgas_progress_polls_total", nil))
	assert.Equal(t, 42.0, gathered(t, c, "pgas_rendezvous_sent_bytes_total", nil))
	assert.Equal(t, 0.0, gathered(t, c, "pgas_rendezvous_received_bytes_total", nil))

	// 重复注册报错
	assert.Error(t, c.RegisterPolls(func() uint64 { return 0 }))
}

// gathered 从注册表读取匹配标签的计数器或仪表值
func gathered(t *testing.T, c *Collectors, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m.GetLabel(), labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, lp := range pairs {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestCollectors_NilSafe(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.ObserveFence()
		c.ObserveFenceTest(true)
		c.ObserveQuiet()
		c.ObserveRendezvous("publish", nil, 0)
		c.SetHeapBytes(0, 1)
		assert.NoError(t, c.RegisterPolls(func() uint64 { return 0 }))
		assert.NoError(t, c.RegisterTraffic(NewTrafficCounter(nil)))
		assert.Nil(t, c.Registry())
	})
}

// ============================================================================
// Fx 模块
// ============================================================================

func TestModule(t *testing.T) {
	t.Run("enabled by default", func(t *testing.T) {
		var c *Collectors
		var r Reporter
		app := fxtest.New(t, Module(), fx.Populate(&c, &r))
		defer app.RequireStart().RequireStop()

		require.NotNil(t, c)
		require.NotNil(t, r)
		r.LogSent("publish", 10)

		mfs, err := c.Registry().Gather()
		require.NoError(t, err)
		var names []string
		for _, mf := range mfs {
			names = append(names, mf.GetName())
		}
		assert.Contains(t, names, "pgas_rendezvous_sent_bytes_total")
	})

	t.Run("traffic registered once", func(t *testing.T) {
		res, err := provide(Params{})
		require.NoError(t, err)
		assert.Error(t, res.Collectors.RegisterTraffic(res.Traffic))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Metrics.Enable = false

		var c *Collectors
		var tc *TrafficCounter
		app := fxtest.New(t, Module(), fx.Supply(cfg), fx.Populate(&c, &tc))
		defer app.RequireStart().RequireStop()

		assert.Nil(t, c)
		assert.NotNil(t, tc)
	})
}
