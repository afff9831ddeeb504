package config

import (
	"errors"
	"time"
)

// RendezvousConfig rendezvous 服务配置
type RendezvousConfig struct {
	// Addr rendezvous 服务地址（host:port）
	// 为空时使用进程内 rendezvous，仅适用于单进程多 PE 作业
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Host 本节点的主机名，用于本地对等进程分组
	// 为空时使用 os.Hostname()
	Host string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`

	// DialTimeout 建立连接的超时
	// 默认值: 5s
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout" toml:"dial_timeout"`

	// MaxServerWait 单次阻塞查找在服务端等待的上限
	// 超过后客户端退避重试，直到调用方 context 结束
	// 默认值: 2s
	MaxServerWait Duration `json:"max_server_wait" yaml:"max_server_wait" toml:"max_server_wait"`

	// RetryBase 客户端重试的初始退避
	// 默认值: 50ms
	RetryBase Duration `json:"retry_base" yaml:"retry_base" toml:"retry_base"`

	// RetryMax 客户端重试的最大退避
	// 默认值: 2s
	RetryMax Duration `json:"retry_max" yaml:"retry_max" toml:"retry_max"`

	// PoolSize 每个客户端保持的空闲连接数
	// 默认值: 4
	PoolSize int `json:"pool_size" yaml:"pool_size" toml:"pool_size"`

	// CacheSize 查找结果缓存条目数，0 表示禁用
	// 默认值: 1024
	CacheSize int `json:"cache_size" yaml:"cache_size" toml:"cache_size"`
}

// DefaultRendezvousConfig 返回默认 rendezvous 配置
func DefaultRendezvousConfig() RendezvousConfig {
	return RendezvousConfig{
		DialTimeout:   Duration(5 * time.Second),
		MaxServerWait: Duration(2 * time.Second),
		RetryBase:     Duration(50 * time.Millisecond),
		RetryMax:      Duration(2 * time.Second),
		PoolSize:      4,
		CacheSize:     1024,
	}
}

// IsLocal 是否使用进程内 rendezvous
func (c *RendezvousConfig) IsLocal() bool {
	return c.Addr == ""
}

// Validate 验证 rendezvous 配置
func (c *RendezvousConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return errors.New("rendezvous: dial_timeout must be positive")
	}
	if c.MaxServerWait <= 0 {
		return errors.New("rendezvous: max_server_wait must be positive")
	}
	if c.RetryBase <= 0 || c.RetryMax < c.RetryBase {
		return errors.New("rendezvous: retry_base must be positive and not exceed retry_max")
	}
	if c.PoolSize <= 0 {
		return errors.New("rendezvous: pool_size must be positive")
	}
	if c.CacheSize < 0 {
		return errors.New("rendezvous: cache_size cannot be negative")
	}
	return nil
}
