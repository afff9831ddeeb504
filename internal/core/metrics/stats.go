package metrics

// Stats 流量统计快照
//
// TotalIn 和 TotalOut 记录累计接收/发送字节数，
// RateIn 和 RateOut 记录最近一分钟的平均速率（字节/秒）。
type Stats struct {
	TotalIn  int64
	TotalOut int64
	RateIn   float64
	RateOut  float64
}
