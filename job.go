package pgas

import (
	"fmt"

	"github.com/dep2p/go-pgas/internal/core/rendezvous"
	"github.com/dep2p/go-pgas/internal/core/storage"
	"github.com/dep2p/go-pgas/internal/core/storage/engine"
	"github.com/dep2p/go-pgas/internal/core/transport/loopback"
)

// Job 进程内作业
//
// 持有共享的 rendezvous 状态与 loopback 传输，每个 PE 是同一
// 进程中的一个 Runtime。
type Job struct {
	eng    engine.Engine
	store  *rendezvous.Store
	fabric *loopback.Fabric
}

// NewJob 创建 npes 个 PE 的进程内作业
func NewJob(npes int) (*Job, error) {
	eng, err := storage.Open(storage.Options{Backend: storage.BackendMemory})
	if err != nil {
		return nil, fmt.Errorf("open job storage: %w", err)
	}
	store, err := rendezvous.NewStore(eng, npes)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	return &Job{
		eng:    eng,
		store:  store,
		fabric: loopback.NewFabric(),
	}, nil
}

// Size 返回作业中的 PE 数
func (j *Job) Size() int {
	return j.store.JobSize()
}

// Namespace 返回作业命名空间
func (j *Job) Namespace() string {
	return j.store.Namespace()
}

// Done 所有 PE 终结后关闭
func (j *Job) Done() <-chan struct{} {
	return j.store.Done()
}

// Close 释放作业存储
func (j *Job) Close() error {
	return j.eng.Close()
}
