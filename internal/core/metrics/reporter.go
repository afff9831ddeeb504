package metrics

// Reporter 记录 rendezvous 线路流量
//
// rendezvous 客户端与服务端在每帧读写后调用。
type Reporter interface {
	// LogSent 记录发送字节
	LogSent(op string, n int64)

	// LogRecv 记录接收字节
	LogRecv(op string, n int64)
}

var _ Reporter = (*TrafficCounter)(nil)

// NopReporter 丢弃所有记录
type NopReporter struct{}

// LogSent 空操作
func (NopReporter) LogSent(string, int64) {}

// LogRecv 空操作
func (NopReporter) LogRecv(string, int64) {}
