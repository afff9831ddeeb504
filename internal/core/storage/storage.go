package storage

import (
	"fmt"
	"path/filepath"

	"github.com/dep2p/go-pgas/internal/core/storage/engine"
	"github.com/dep2p/go-pgas/internal/core/storage/engine/badger"
	"github.com/dep2p/go-pgas/internal/core/storage/engine/memory"
	"github.com/dep2p/go-pgas/internal/util/logger"
)

var log = logger.Logger("storage")

// Backend 存储后端类型
type Backend string

const (
	// BackendMemory 进程内 map
	BackendMemory Backend = "memory"
	// BackendBadger BadgerDB
	BackendBadger Backend = "badger"
)

// Options 打开存储的选项
type Options struct {
	// Backend 后端类型，空值时根据 DataDir 推断
	Backend Backend

	// DataDir 数据目录；badger 后端为空时使用纯内存模式
	DataDir string

	// SyncWrites 每次写入都同步到磁盘
	SyncWrites bool
}

// Open 根据选项打开存储引擎
func Open(opts Options) (engine.Engine, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendMemory
		if opts.DataDir != "" {
			backend = BackendBadger
		}
	}

	switch backend {
	case BackendMemory:
		log.Debug("using memory storage")
		return memory.New(), nil
	case BackendBadger:
		var cfg *engine.Config
		if opts.DataDir == "" {
			cfg = engine.InMemory()
		} else {
			cfg = engine.OnDisk(DBPath(opts.DataDir))
		}
		cfg.SyncWrites = opts.SyncWrites
		return badger.New(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", engine.ErrInvalidConfig, backend)
	}
}

// DBPath 返回 BadgerDB 数据库路径
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "rendezvous.db")
}
