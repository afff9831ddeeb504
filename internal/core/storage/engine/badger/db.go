package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
	"github.com/dep2p/go-pgas/internal/util/logger"
)

var log = logger.Logger("storage")

// maxInsertRetries Insert 遇到事务冲突时的最大重试次数
const maxInsertRetries = 8

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	cfg    engine.Config
	closed atomic.Bool

	stopGC chan struct{}
	gcDone sync.WaitGroup
}

var _ engine.Engine = (*Engine)(nil)

// New 打开 BadgerDB 存储引擎
func New(cfg *engine.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", engine.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions("").WithInMemory(true)
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(slogAdapter{log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	e := &Engine{db: db, cfg: *cfg, stopGC: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		e.gcDone.Add(1)
		go e.runGC()
	}

	log.Debug("badger engine opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return e, nil
}

// slogAdapter 把 badger 日志接到 storage 子系统；badger 的 info 级别降为 debug
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, args ...interface{})   { a.l.Error(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Warningf(f string, args ...interface{}) { a.l.Warn(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Infof(f string, args ...interface{})    { a.l.Debug(fmt.Sprintf(f, args...)) }
func (a slogAdapter) Debugf(f string, args ...interface{})   { a.l.Debug(fmt.Sprintf(f, args...)) }

// runGC 周期性回收值日志
func (e *Engine) runGC() {
	defer e.gcDone.Done()

	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopGC:
			return
		case <-ticker.C:
			for e.db.RunValueLogGC(e.cfg.GCDiscardRatio) == nil {
			}
		}
	}
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return nil
}

// Get 获取指定键的值
func (e *Engine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, convertError(err)
}

// Put 写入键值对
func (e *Engine) Put(key, value []byte) error {
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	return convertError(e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

// Insert 仅在键不存在时写入
//
// 读取与写入在同一事务中完成；并发写同一键时 badger 以 ErrConflict
// 拒绝后提交的事务，重试后会读到先提交的值。
func (e *Engine) Insert(key, value []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, engine.ErrEmptyKey
	}
	if err := e.checkOpen(); err != nil {
		return nil, false, err
	}

	for attempt := 0; ; attempt++ {
		var (
			existing []byte
			inserted bool
		)
		err := e.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			switch {
			case err == nil:
				existing, err = item.ValueCopy(nil)
				return err
			case errors.Is(err, badger.ErrKeyNotFound):
				inserted = true
				return txn.Set(key, value)
			default:
				return err
			}
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxInsertRetries {
			continue
		}
		if err != nil {
			return nil, false, convertError(err)
		}
		return existing, inserted, nil
	}
}

// Scan 按键序遍历具有指定前缀的键值对
func (e *Engine) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	return convertError(e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	}))
}

// Close 停止回收并关闭数据库
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	close(e.stopGC)
	e.gcDone.Wait()
	return e.db.Close()
}

func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return engine.ErrClosed
	case errors.Is(err, badger.ErrEmptyKey):
		return engine.ErrEmptyKey
	default:
		return err
	}
}
