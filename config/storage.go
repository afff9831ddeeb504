package config

import (
	"fmt"
	"path/filepath"
)

// StorageConfig rendezvous 存储配置
//
// 仅 rendezvous 服务端使用。数据目录结构：
//
//	${DataDir}/
//	└── rendezvous.db/      # BadgerDB 数据库
type StorageConfig struct {
	// Backend 存储后端: "memory" 或 "badger"
	// 默认值: "memory"
	Backend string `json:"backend" yaml:"backend" toml:"backend"`

	// DataDir 数据目录路径，badger 后端使用；为空时 badger 以内存模式运行
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`

	// SyncWrites 每次写入同步落盘
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes" toml:"sync_writes"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: "memory",
	}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Backend)
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "rendezvous.db")
}
