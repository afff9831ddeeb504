package metrics

import (
	"sync"

	"github.com/benbjohnson/clock"
)

// TrafficCounter rendezvous 线路流量计数器
//
// 记录总量与按操作（publish/lookup/barrier/...）的收发字节数。
type TrafficCounter struct {
	clock clock.Clock

	in  *RateMeter
	out *RateMeter

	mu    sync.RWMutex
	opIn  map[string]*RateMeter
	opOut map[string]*RateMeter
}

// NewTrafficCounter 创建流量计数器
func NewTrafficCounter(c clock.Clock) *TrafficCounter {
	if c == nil {
		c = clock.New()
	}
	return &TrafficCounter{
		clock: c,
		in:    NewRateMeter(c),
		out:   NewRateMeter(c),
		opIn:  make(map[string]*RateMeter),
		opOut: make(map[string]*RateMeter),
	}
}

func (tc *TrafficCounter) meter(m map[string]*RateMeter, op string) *RateMeter {
	tc.mu.RLock()
	rm := m[op]
	tc.mu.RUnlock()
	if rm != nil {
		return rm
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	if rm = m[op]; rm == nil {
		rm = NewRateMeter(tc.clock)
		m[op] = rm
	}
	return rm
}

// LogSent 记录发送字节
func (tc *TrafficCounter) LogSent(op string, n int64) {
	tc.out.Add(n)
	tc.meter(tc.opOut, op).Add(n)
}

// LogRecv 记录接收字节
func (tc *TrafficCounter) LogRecv(op string, n int64) {
	tc.in.Add(n)
	tc.meter(tc.opIn, op).Add(n)
}

// Totals 返回总流量统计
func (tc *TrafficCounter) Totals() Stats {
	return Stats{
		TotalIn:  tc.in.Total(),
		TotalOut: tc.out.Total(),
		RateIn:   tc.in.Rate(),
		RateOut:  tc.out.Rate(),
	}
}

// ForOp 返回单个操作的流量统计
func (tc *TrafficCounter) ForOp(op string) Stats {
	tc.mu.RLock()
	in, out := tc.opIn[op], tc.opOut[op]
	tc.mu.RUnlock()

	var s Stats
	if in != nil {
		s.TotalIn, s.RateIn = in.Total(), in.Rate()
	}
	if out != nil {
		s.TotalOut, s.RateOut = out.Total(), out.Rate()
	}
	return s
}

// ByOp 返回所有操作的流量统计
func (tc *TrafficCounter) ByOp() map[string]Stats {
	tc.mu.RLock()
	ops := make(map[string]struct{}, len(tc.opIn)+len(tc.opOut))
	for op := range tc.opIn {
		ops[op] = struct{}{}
	}
	for op := range tc.opOut {
		ops[op] = struct{}{}
	}
	tc.mu.RUnlock()

	out := make(map[string]Stats, len(ops))
	for op := range ops {
		out[op] = tc.ForOp(op)
	}
	return out
}

// Reset 重置所有统计
func (tc *TrafficCounter) Reset() {
	tc.in.Reset()
	tc.out.Reset()

	tc.mu.Lock()
	tc.opIn = make(map[string]*RateMeter)
	tc.opOut = make(map[string]*RateMeter)
	tc.mu.Unlock()
}
