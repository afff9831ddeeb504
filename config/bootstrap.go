package config

import (
	"errors"
	"time"
)

// BootstrapConfig 引导配置
type BootstrapConfig struct {
	// InitTimeout 初始化（rendezvous 注册 + 初始屏障）的超时
	// 默认值: 60s
	InitTimeout Duration `json:"init_timeout" yaml:"init_timeout" toml:"init_timeout"`

	// FinalizeTimeout 终结（含内嵌屏障）的超时
	// 默认值: 30s
	FinalizeTimeout Duration `json:"finalize_timeout" yaml:"finalize_timeout" toml:"finalize_timeout"`
}

// DefaultBootstrapConfig 返回默认引导配置
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		InitTimeout:     Duration(60 * time.Second),
		FinalizeTimeout: Duration(30 * time.Second),
	}
}

// Validate 验证引导配置
func (c *BootstrapConfig) Validate() error {
	if c.InitTimeout <= 0 {
		return errors.New("bootstrap: init_timeout must be positive")
	}
	if c.FinalizeTimeout <= 0 {
		return errors.New("bootstrap: finalize_timeout must be positive")
	}
	return nil
}
