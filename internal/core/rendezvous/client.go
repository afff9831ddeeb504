package rendezvous

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-pgas/config"
	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

// ============================================================================
//                              Client 配置
// ============================================================================

// ClientConfig 网络客户端配置
type ClientConfig struct {
	// Addr rendezvous point 地址
	Addr string

	// Host 本节点主机名
	Host string

	// DialTimeout 建连超时
	DialTimeout time.Duration

	// MaxServerWait 服务端单次等待上限，用于推算读超时
	MaxServerWait time.Duration

	// RetryBase 初始退避
	RetryBase time.Duration

	// RetryMax 最大退避
	RetryMax time.Duration

	// PoolSize 空闲连接数
	PoolSize int

	// CacheSize 查找缓存条目数，0 表示禁用
	CacheSize int
}

// ClientConfigFrom 从统一配置创建客户端配置
func ClientConfigFrom(c config.RendezvousConfig, host string) ClientConfig {
	return ClientConfig{
		Addr:          c.Addr,
		Host:          host,
		DialTimeout:   c.DialTimeout.Duration(),
		MaxServerWait: c.MaxServerWait.Duration(),
		RetryBase:     c.RetryBase.Duration(),
		RetryMax:      c.RetryMax.Duration(),
		PoolSize:      c.PoolSize,
		CacheSize:     c.CacheSize,
	}
}

// ============================================================================
//                              Client
// ============================================================================

// Client 网络 rendezvous 客户端
//
// 已发布的值不可变，查找结果缓存在 LRU 中。
type Client struct {
	config     ClientConfig
	reporter   metrics.Reporter
	collectors *metrics.Collectors

	pool  chan *clientConn
	cache *lru.Cache[string, []byte]

	mu     sync.Mutex
	rank   types.Rank
	joined bool
	epoch  uint64
	closed bool
}

var _ interfaces.Rendezvous = (*Client)(nil)

// clientConn 带缓冲读的连接
type clientConn struct {
	net.Conn
	r *bufio.Reader
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithClientReporter 设置线路流量记录
func WithClientReporter(r metrics.Reporter) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithClientCollectors 设置指标
func WithClientCollectors(m *metrics.Collectors) ClientOption {
	return func(c *Client) {
		c.collectors = m
	}
}

// NewClient 创建网络客户端
func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("rendezvous: client address must not be empty")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 50 * time.Millisecond
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}

	c := &Client{
		config:   cfg,
		reporter: metrics.NopReporter{},
		pool:     make(chan *clientConn, cfg.PoolSize),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ============================================================================
//                              Rendezvous 接口
// ============================================================================

// Init 加入作业并等待作业满员
func (c *Client) Init(ctx context.Context) (info interfaces.BootstrapInfo, err error) {
	defer observe(c.collectors, OpInfo, time.Now(), &err)

	resp, err := c.call(ctx, &Request{Op: OpJoin, Host: c.config.Host})
	if err != nil {
		return interfaces.BootstrapInfo{}, fmt.Errorf("join: %w", err)
	}

	c.mu.Lock()
	c.rank = resp.Rank
	c.joined = true
	c.mu.Unlock()

	resp, err = c.call(ctx, &Request{Op: OpInfo, Rank: resp.Rank})
	if err != nil {
		return interfaces.BootstrapInfo{}, fmt.Errorf("info: %w", err)
	}
	return resp.Info, nil
}

// Barrier 作业屏障
func (c *Client) Barrier(ctx context.Context) (err error) {
	defer observe(c.collectors, OpBarrier, time.Now(), &err)

	rank, epoch, err := c.member()
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, &Request{Op: OpBarrier, Rank: rank, Epoch: epoch}); err != nil {
		return err
	}

	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	return nil
}

// Publish 发布键值
func (c *Client) Publish(ctx context.Context, key string, value []byte) (err error) {
	defer observe(c.collectors, OpPublish, time.Now(), &err)

	if _, err := c.call(ctx, &Request{Op: OpPublish, Key: key, Value: value}); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Add(key, append([]byte(nil), value...))
	}
	return nil
}

// Lookup 查找键值
func (c *Client) Lookup(ctx context.Context, key string, wait bool) (v []byte, err error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return append([]byte(nil), v...), nil
		}
	}

	defer observe(c.collectors, OpLookup, time.Now(), &err)

	resp, err := c.call(ctx, &Request{Op: OpLookup, Key: key, Wait: wait})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(key, append([]byte(nil), resp.Value...))
	}
	return resp.Value, nil
}

// Finalize 离开作业并关闭连接
func (c *Client) Finalize(ctx context.Context, embedBarrier bool) (err error) {
	defer observe(c.collectors, OpLeave, time.Now(), &err)

	rank, epoch, err := c.member()
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, &Request{Op: OpLeave, Rank: rank, Epoch: epoch, Embed: embedBarrier}); err != nil {
		return err
	}

	c.mu.Lock()
	if embedBarrier {
		c.epoch++
	}
	c.joined = false
	c.mu.Unlock()

	c.Close()
	return nil
}

// Close 关闭所有空闲连接
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	for {
		select {
		case cc := <-c.pool:
			_ = cc.Close()
		default:
			return
		}
	}
}

// ============================================================================
//                              请求与重试
// ============================================================================

func (c *Client) member() (types.Rank, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.joined {
		return 0, 0, ErrNotJoined
	}
	return c.rank, c.epoch, nil
}

// call 发送请求；pending 与连接失败以指数退避重试，直到 ctx 结束
func (c *Client) call(ctx context.Context, req *Request) (*Response, error) {
	backoff := c.config.RetryBase
	for {
		resp, err := c.roundTrip(ctx, req)
		if err == nil {
			err = StatusToError(resp.Status, resp.Error)
			if err == nil {
				return resp, nil
			}
		}
		if !errors.Is(err, ErrPending) && !errors.Is(err, ErrUnavailable) {
			return nil, err
		}

		log.Debug("rendezvous request retry", "op", req.Op, "key", req.Key, "backoff", backoff, "err", err)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("%s: %w (last error: %v)", req.Op, ctx.Err(), err)
		case <-t.C:
		}

		if errors.Is(err, ErrPending) {
			backoff = c.config.RetryBase
			continue
		}
		backoff *= 2
		if backoff > c.config.RetryMax {
			backoff = c.config.RetryMax
		}
	}
}

// roundTrip 单次请求/响应
func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	cc, err := c.getConn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	deadline := time.Now().Add(c.config.MaxServerWait + c.config.DialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = cc.SetDeadline(deadline)

	n, err := WriteRequest(cc, req)
	if err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.reporter.LogSent(req.Op, int64(n))

	resp, n, err := ReadResponse(cc.r)
	if err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.reporter.LogRecv(req.Op, int64(n))

	c.putConn(cc)
	return resp, nil
}

func (c *Client) getConn(ctx context.Context) (*clientConn, error) {
	select {
	case cc := <-c.pool:
		return cc, nil
	default:
	}

	d := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.config.Addr)
	if err != nil {
		return nil, err
	}
	return &clientConn{Conn: conn, r: bufio.NewReader(conn)}, nil
}

func (c *Client) putConn(cc *clientConn) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		_ = cc.Close()
		return
	}

	select {
	case c.pool <- cc:
	default:
		_ = cc.Close()
	}
}

// observe 记录一次 rendezvous 操作
func observe(m *metrics.Collectors, op string, start time.Time, err *error) {
	m.ObserveRendezvous(op, *err, time.Since(start))
}
