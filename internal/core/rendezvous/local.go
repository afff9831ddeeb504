package rendezvous

import (
	"context"
	"sync"
	"time"

	"github.com/dep2p/go-pgas/internal/core/metrics"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

// LocalClient 进程内 rendezvous 客户端
//
// 同一进程内的多个 PE 共享一个 Store，语义与网络客户端一致。
type LocalClient struct {
	store      *Store
	host       string
	collectors *metrics.Collectors

	mu     sync.Mutex
	rank   types.Rank
	joined bool
	epoch  uint64
}

var _ interfaces.Rendezvous = (*LocalClient)(nil)

// NewLocalClient 创建进程内客户端
func NewLocalClient(store *Store, host string, m *metrics.Collectors) *LocalClient {
	return &LocalClient{
		store:      store,
		host:       host,
		collectors: m,
	}
}

// Init 加入作业并等待作业满员
func (c *LocalClient) Init(ctx context.Context) (info interfaces.BootstrapInfo, err error) {
	defer observe(c.collectors, OpInfo, time.Now(), &err)

	rank, err := c.store.Join(c.host)
	if err != nil {
		return interfaces.BootstrapInfo{}, err
	}

	c.mu.Lock()
	c.rank = rank
	c.joined = true
	c.mu.Unlock()

	return c.store.Info(ctx, rank)
}

// Barrier 作业屏障
func (c *LocalClient) Barrier(ctx context.Context) (err error) {
	defer observe(c.collectors, OpBarrier, time.Now(), &err)

	rank, epoch, err := c.member()
	if err != nil {
		return err
	}
	if err := c.store.Barrier(ctx, rank, epoch); err != nil {
		return err
	}

	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	return nil
}

// Publish 发布键值
func (c *LocalClient) Publish(_ context.Context, key string, value []byte) (err error) {
	defer observe(c.collectors, OpPublish, time.Now(), &err)
	return c.store.Publish(key, value)
}

// Lookup 查找键值
func (c *LocalClient) Lookup(ctx context.Context, key string, wait bool) (v []byte, err error) {
	defer observe(c.collectors, OpLookup, time.Now(), &err)
	return c.store.Lookup(ctx, key, wait)
}

// Finalize 离开作业
func (c *LocalClient) Finalize(ctx context.Context, embedBarrier bool) (err error) {
	defer observe(c.collectors, OpLeave, time.Now(), &err)

	rank, epoch, err := c.member()
	if err != nil {
		return err
	}
	if err := c.store.Leave(ctx, rank, epoch, embedBarrier); err != nil {
		return err
	}

	c.mu.Lock()
	if embedBarrier {
		c.epoch++
	}
	c.joined = false
	c.mu.Unlock()
	return nil
}

func (c *LocalClient) member() (types.Rank, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.joined {
		return 0, 0, ErrNotJoined
	}
	return c.rank, c.epoch, nil
}
