package rendezvous

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
	"github.com/dep2p/go-pgas/internal/core/storage/kv"
	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("rendezvous")

// ============================================================================
//                              Store 作业状态
// ============================================================================

// Store 一个作业的 rendezvous 状态
//
// 已发布的值写入 kv 存储；加入、屏障与离开的状态保存在内存中，
// 主机名同时持久化以便同一命名空间重新打开时恢复。
type Store struct {
	jobSize   int
	namespace string

	values *kv.Store
	hosts  *kv.Store

	mu      sync.Mutex
	members []string
	full    chan struct{}
	waiters map[string]chan struct{}

	// 屏障
	epoch   uint64
	arrived map[types.Rank]struct{}
	release chan struct{}

	// 离开
	left map[types.Rank]struct{}
	done chan struct{}
}

// StoreOption Store 选项
type StoreOption func(*Store)

// WithNamespace 使用指定的作业命名空间（默认随机 uuid）
func WithNamespace(ns string) StoreOption {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// NewStore 创建作业状态
func NewStore(eng engine.Engine, jobSize int, opts ...StoreOption) (*Store, error) {
	if jobSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidJobSize, jobSize)
	}

	s := &Store{
		jobSize:   jobSize,
		namespace: uuid.NewString(),
		full:      make(chan struct{}),
		waiters:   make(map[string]chan struct{}),
		arrived:   make(map[types.Rank]struct{}),
		release:   make(chan struct{}),
		left:      make(map[types.Rank]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	job := kv.New(eng, "j/"+s.namespace+"/")
	s.values = job.Sub("k/")
	s.hosts = job.Sub("m/h/")

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load 恢复已持久化的成员
func (s *Store) load() error {
	members := make(map[int]string)
	err := s.hosts.Scan(func(key string, value []byte) bool {
		r, err := strconv.Atoi(key)
		if err == nil && r >= 0 && r < s.jobSize {
			members[r] = string(value)
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	// 只恢复连续的前缀
	for r := 0; r < len(members); r++ {
		host, ok := members[r]
		if !ok {
			break
		}
		s.members = append(s.members, host)
	}
	if len(s.members) > 0 {
		published, err := s.values.Len()
		if err != nil {
			return fmt.Errorf("load values: %w", err)
		}
		log.Info("job restored",
			"namespace", s.namespace,
			"joined", len(s.members),
			"size", s.jobSize,
			"published", published)
	}
	if len(s.members) == s.jobSize {
		close(s.full)
	}
	return nil
}

// Namespace 返回作业命名空间
func (s *Store) Namespace() string {
	return s.namespace
}

// JobSize 返回作业规模
func (s *Store) JobSize() int {
	return s.jobSize
}

// Joined 返回已加入的进程数
func (s *Store) Joined() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Done 所有进程离开后关闭
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// ============================================================================
//                              加入
// ============================================================================

// Join 按到达顺序分配 rank
func (s *Store) Join(host string) (types.Rank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.members) >= s.jobSize {
		return 0, fmt.Errorf("%w: size %d", ErrJobFull, s.jobSize)
	}

	rank := types.Rank(len(s.members))
	if err := s.hosts.Put(rank.String(), []byte(host)); err != nil {
		return 0, fmt.Errorf("persist member: %w", err)
	}
	s.members = append(s.members, host)

	log.Debug("member joined", "rank", rank, "host", host, "joined", len(s.members), "size", s.jobSize)
	if len(s.members) == s.jobSize {
		close(s.full)
		log.Info("job complete, all members joined", "namespace", s.namespace, "size", s.jobSize)
	}
	return rank, nil
}

// Info 阻塞直到作业满员，返回 rank 的作业信息
func (s *Store) Info(ctx context.Context, rank types.Rank) (interfaces.BootstrapInfo, error) {
	if !rank.Valid(s.jobSize) {
		return interfaces.BootstrapInfo{}, fmt.Errorf("%w: %d", ErrInvalidRank, rank)
	}

	select {
	case <-s.full:
	case <-ctx.Done():
		return interfaces.BootstrapInfo{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	host := s.members[rank]
	var peers []types.Rank
	for r, h := range s.members {
		if h == host {
			peers = append(peers, types.Rank(r))
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })

	return interfaces.BootstrapInfo{
		Rank:           rank,
		JobSize:        s.jobSize,
		LocalPeerCount: len(peers),
		LocalPeers:     peers,
		Namespace:      s.namespace,
	}, nil
}

// ============================================================================
//                              发布 / 查找
// ============================================================================

// Publish 发布键值
//
// 相同值的重复发布是幂等的，不同值返回 ErrKeyConflict。
func (s *Store) Publish(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, inserted, err := s.values.Insert(key, value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInternalError, err)
	}
	if !inserted {
		if bytes.Equal(existing, value) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrKeyConflict, key)
	}
	if ch, ok := s.waiters[key]; ok {
		close(ch)
		delete(s.waiters, key)
	}
	return nil
}

// Lookup 查找键值
//
// wait 为 false 时未发布返回 ErrNotFound；为 true 时阻塞到发布或 ctx 结束。
func (s *Store) Lookup(ctx context.Context, key string, wait bool) ([]byte, error) {
	for {
		s.mu.Lock()
		v, err := s.values.Get(key)
		if err == nil {
			s.mu.Unlock()
			return v, nil
		}
		if !engine.IsNotFound(err) {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrInternalError, err)
		}
		if !wait {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		ch, ok := s.waiters[key]
		if !ok {
			ch = make(chan struct{})
			s.waiters[key] = ch
		}
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ============================================================================
//                              屏障
// ============================================================================

// Barrier 按代次的屏障
//
// epoch 是调用方已完成的屏障次数。同一 rank 在同一代次重复到达
// 只计一次，代次已释放时立即返回。
func (s *Store) Barrier(ctx context.Context, rank types.Rank, epoch uint64) error {
	if !rank.Valid(s.jobSize) {
		return fmt.Errorf("%w: %d", ErrInvalidRank, rank)
	}

	s.mu.Lock()
	if epoch < s.epoch {
		s.mu.Unlock()
		return nil
	}
	if epoch > s.epoch {
		current := s.epoch
		s.mu.Unlock()
		return fmt.Errorf("%w: got %d, current %d", ErrInvalidEpoch, epoch, current)
	}

	release := s.release
	s.arrived[rank] = struct{}{}
	if len(s.arrived) == s.jobSize {
		log.Debug("barrier released", "epoch", s.epoch)
		s.epoch++
		s.arrived = make(map[types.Rank]struct{})
		s.release = make(chan struct{})
		close(release)
	}
	s.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Epoch 返回已释放的屏障次数
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// ============================================================================
//                              离开
// ============================================================================

// Leave 离开作业
//
// embedBarrier 为 true 时先参与代次为 epoch 的屏障。
func (s *Store) Leave(ctx context.Context, rank types.Rank, epoch uint64, embedBarrier bool) error {
	if !rank.Valid(s.jobSize) {
		return fmt.Errorf("%w: %d", ErrInvalidRank, rank)
	}
	if embedBarrier {
		if err := s.Barrier(ctx, rank, epoch); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.left[rank]; ok {
		return nil
	}
	s.left[rank] = struct{}{}
	log.Debug("member left", "rank", rank, "left", len(s.left), "size", s.jobSize)
	if len(s.left) == s.jobSize {
		close(s.done)
		log.Info("all members left", "namespace", s.namespace)
	}
	return nil
}
