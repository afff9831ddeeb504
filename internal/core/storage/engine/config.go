package engine

import (
	"fmt"
	"time"
)

// Config 持久化引擎配置
type Config struct {
	// Path 数据库目录；InMemory 为 true 时忽略
	Path string

	// InMemory 不落盘
	InMemory bool

	// SyncWrites 每次写入都同步到磁盘
	SyncWrites bool

	// GCInterval 值日志回收间隔，0 表示不回收
	GCInterval time.Duration

	// GCDiscardRatio 值日志文件可回收比例阈值
	GCDiscardRatio float64
}

// OnDisk 返回落盘配置
//
// rendezvous 的值很小且只写一次，回收间隔取得较长。
func OnDisk(path string) *Config {
	return &Config{
		Path:           path,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemory 返回纯内存配置
func InMemory() *Config {
	return &Config{InMemory: true, GCDiscardRatio: 0.5}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("%w: path required for on-disk engine", ErrInvalidConfig)
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("%w: negative gc interval", ErrInvalidConfig)
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("%w: gc discard ratio %v not in (0, 1)", ErrInvalidConfig, c.GCDiscardRatio)
	}
	return nil
}
