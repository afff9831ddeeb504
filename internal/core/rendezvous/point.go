package rendezvous

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	tec "github.com/jbenet/go-temp-err-catcher"

	"github.com/dep2p/go-pgas/internal/core/metrics"
)

// ============================================================================
//                              Point 配置
// ============================================================================

// PointConfig Rendezvous Point 配置
type PointConfig struct {
	// ListenAddr 监听地址
	ListenAddr string

	// MaxServerWait 单个阻塞请求在服务端的最长等待
	MaxServerWait time.Duration
}

// DefaultPointConfig 默认配置
func DefaultPointConfig() PointConfig {
	return PointConfig{
		ListenAddr:    ":7070",
		MaxServerWait: 2 * time.Second,
	}
}

// Validate 验证配置
func (c *PointConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.MaxServerWait <= 0 {
		return errors.New("max server wait must be positive")
	}
	return nil
}

// ============================================================================
//                              Point 服务端
// ============================================================================

// Point Rendezvous Point 服务端
type Point struct {
	config     PointConfig
	store      *Store
	reporter   metrics.Reporter
	collectors *metrics.Collectors

	listener net.Listener

	// 统计
	requestsReceived uint64

	// 生命周期
	ctx       context.Context
	ctxCancel context.CancelFunc
	started   atomic.Bool
	wg        sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// PointOption Point 选项
type PointOption func(*Point)

// WithPointReporter 设置线路流量记录
func WithPointReporter(r metrics.Reporter) PointOption {
	return func(p *Point) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithPointCollectors 设置指标
func WithPointCollectors(c *metrics.Collectors) PointOption {
	return func(p *Point) {
		p.collectors = c
	}
}

// NewPoint 创建 Rendezvous Point
func NewPoint(store *Store, config PointConfig, opts ...PointOption) *Point {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Point{
		config:    config,
		store:     store,
		reporter:  metrics.NopReporter{},
		ctx:       ctx,
		ctxCancel: cancel,
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start 开始监听
func (p *Point) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", p.config.ListenAddr)
	if err != nil {
		p.started.Store(false)
		return err
	}
	p.listener = ln

	log.Info("rendezvous point listening",
		"addr", ln.Addr().String(),
		"namespace", p.store.Namespace(),
		"size", p.store.JobSize())

	p.wg.Add(1)
	go p.acceptLoop()
	return nil
}

// Stop 停止服务并关闭所有连接
func (p *Point) Stop() error {
	if !p.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	p.ctxCancel()
	err := p.listener.Close()

	p.mu.Lock()
	for c := range p.conns {
		_ = c.Close()
	}
	p.mu.Unlock()

	p.wg.Wait()
	return err
}

// Addr 返回监听地址
func (p *Point) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Store 返回作业状态
func (p *Point) Store() *Store {
	return p.store
}

// RequestsReceived 返回已处理的请求数
func (p *Point) RequestsReceived() uint64 {
	return atomic.LoadUint64(&p.requestsReceived)
}

// ============================================================================
//                              连接处理
// ============================================================================

// acceptLoop 接受连接，临时错误退避后重试
func (p *Point) acceptLoop() {
	defer p.wg.Done()

	var catcher tec.TempErrCatcher
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			if catcher.IsTemporary(err) {
				log.Debug("temporary accept error", "err", err)
				continue
			}
			log.Warn("rendezvous point accept failed", "err", err)
			return
		}

		if !p.track(conn) {
			return
		}
		p.wg.Add(1)
		go p.handleConn(conn)
	}
}

// track 登记连接；Point 已停止时关闭连接并返回 false
func (p *Point) track(conn net.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	p.conns[conn] = struct{}{}
	return true
}

// handleConn 顺序处理一条连接上的请求
func (p *Point) handleConn(conn net.Conn) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		delete(p.conns, conn)
		p.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		req, n, err := ReadRequest(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && p.ctx.Err() == nil {
				log.Debug("rendezvous read failed", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}
		atomic.AddUint64(&p.requestsReceived, 1)
		p.reporter.LogRecv(req.Op, int64(n))

		resp := p.dispatch(req)

		n, err = WriteResponse(conn, resp)
		if err != nil {
			log.Debug("rendezvous write failed", "remote", conn.RemoteAddr().String(), "err", err)
			return
		}
		p.reporter.LogSent(req.Op, int64(n))
	}
}

// dispatch 路由到 Store
func (p *Point) dispatch(req *Request) *Response {
	start := time.Now()
	resp, err := p.serve(req)
	if err != nil {
		resp = &Response{Error: err.Error()}
	}
	resp.Status = StatusFromError(err)
	if resp.Status != StatusPending {
		p.collectors.ObserveRendezvous(req.Op, err, time.Since(start))
	}
	return resp
}

func (p *Point) serve(req *Request) (*Response, error) {
	switch req.Op {
	case OpJoin:
		rank, err := p.store.Join(req.Host)
		return &Response{Rank: rank}, err

	case OpInfo:
		ctx, cancel := p.waitContext()
		defer cancel()
		info, err := p.store.Info(ctx, req.Rank)
		return &Response{Rank: info.Rank, Info: info}, p.pending(err)

	case OpPublish:
		return &Response{}, p.store.Publish(req.Key, req.Value)

	case OpLookup:
		ctx, cancel := p.waitContext()
		defer cancel()
		v, err := p.store.Lookup(ctx, req.Key, req.Wait)
		return &Response{Value: v}, p.pending(err)

	case OpBarrier:
		ctx, cancel := p.waitContext()
		defer cancel()
		return &Response{}, p.pending(p.store.Barrier(ctx, req.Rank, req.Epoch))

	case OpLeave:
		ctx, cancel := p.waitContext()
		defer cancel()
		return &Response{}, p.pending(p.store.Leave(ctx, req.Rank, req.Epoch, req.Embed))

	default:
		return nil, ErrInvalidMessage
	}
}

// waitContext 服务端有界等待
func (p *Point) waitContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(p.ctx, p.config.MaxServerWait)
}

// pending 等待超时转为 ErrPending
func (p *Point) pending(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPending
	}
	return err
}
