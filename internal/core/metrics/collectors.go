package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace 默认指标名前缀
const DefaultNamespace = "pgas"

// Collectors 运行时的 prometheus 指标
type Collectors struct {
	registry *prometheus.Registry
	ns       string

	fence          prometheus.Counter
	fenceTest      *prometheus.CounterVec
	quiet          prometheus.Counter
	rendezvousOps  *prometheus.CounterVec
	rendezvousWait *prometheus.HistogramVec
	heapBytes      *prometheus.GaugeVec
}

// NewCollectors 创建并注册指标
func NewCollectors(namespace string) *Collectors {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collectors{
		registry: prometheus.NewRegistry(),
		ns:       namespace,
		fence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ordering",
			Name:      "fence_total",
			Help:      "Fence calls.",
		}),
		fenceTest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ordering",
			Name:      "fence_test_total",
			Help:      "Non-blocking fence tests by result.",
		}, []string{"complete"}),
		quiet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ordering",
			Name:      "quiet_total",
			Help:      "Quiet calls.",
		}),
		rendezvousOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rendezvous",
			Name:      "ops_total",
			Help:      "Rendezvous operations by op and outcome.",
		}, []string{"op", "success"}),
		rendezvousWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rendezvous",
			Name:      "op_duration_seconds",
			Help:      "Rendezvous operation duration in seconds, including blocking waits.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		heapBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "heap",
			Name:      "bytes",
			Help:      "Size of each local symmetric heap.",
		}, []string{"heap"}),
	}

	c.registry.MustRegister(c.fence, c.fenceTest, c.quiet, c.rendezvousOps, c.rendezvousWait, c.heapBytes)
	return c
}

// Registry 返回指标注册表
func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveFence 记录一次 fence
func (c *Collectors) ObserveFence() {
	if c == nil {
		return
	}
	c.fence.Inc()
}

// ObserveFenceTest 记录一次 fence_test 及其结果
func (c *Collectors) ObserveFenceTest(complete bool) {
	if c == nil {
		return
	}
	c.fenceTest.WithLabelValues(strconv.FormatBool(complete)).Inc()
}

// ObserveQuiet 记录一次 quiet
func (c *Collectors) ObserveQuiet() {
	if c == nil {
		return
	}
	c.quiet.Inc()
}

// ObserveRendezvous 记录一次 rendezvous 操作
func (c *Collectors) ObserveRendezvous(op string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.rendezvousOps.WithLabelValues(op, strconv.FormatBool(err == nil)).Inc()
	c.rendezvousWait.WithLabelValues(op).Observe(d.Seconds())
}

// SetHeapBytes 记录本地对称堆大小
func (c *Collectors) SetHeapBytes(heap int, size uint64) {
	if c == nil {
		return
	}
	c.heapBytes.WithLabelValues(strconv.Itoa(heap)).Set(float64(size))
}

// RegisterPolls 以 CounterFunc 形式导出进度轮询次数
func (c *Collectors) RegisterPolls(polls func() uint64) error {
	if c == nil {
		return nil
	}
	return c.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.ns,
		Subsystem: "progress",
		Name:      "polls_total",
		Help:      "Transport progress calls made by the progress thread.",
	}, func() float64 { return float64(polls()) }))
}

// RegisterTraffic 导出 rendezvous 线路流量总量
func (c *Collectors) RegisterTraffic(tc *TrafficCounter) error {
	if c == nil || tc == nil {
		return nil
	}
	in := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.ns,
		Subsystem: "rendezvous",
		Name:      "received_bytes_total",
		Help:      "Bytes received on rendezvous connections.",
	}, func() float64 { return float64(tc.Totals().TotalIn) })
	out := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.ns,
		Subsystem: "rendezvous",
		Name:      "sent_bytes_total",
		Help:      "Bytes sent on rendezvous connections.",
	}, func() float64 { return float64(tc.Totals().TotalOut) })

	if err := c.registry.Register(in); err != nil {
		return err
	}
	return c.registry.Register(out)
}
