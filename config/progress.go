package config

import (
	"fmt"
	"time"
)

// ProgressConfig 进度线程配置
type ProgressConfig struct {
	// Threads 需要进度线程的 rank 列表
	// "all" 表示所有进程；"0,3,5" 表示指定 rank；空值表示不启用
	Threads string `json:"threads" yaml:"threads" toml:"threads"`

	// Delay 两次进度调用之间的休眠
	// 默认值: 1us
	Delay Duration `json:"delay" yaml:"delay" toml:"delay"`

	// StopTimeout 等待进度线程退出的上限
	// 默认值: 10s
	StopTimeout Duration `json:"stop_timeout" yaml:"stop_timeout" toml:"stop_timeout"`
}

// DefaultProgressConfig 返回默认进度配置
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Delay:       Duration(1000 * time.Nanosecond),
		StopTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证进度配置
//
// Threads 不在此校验：无法解析的列表按"不匹配"处理。
func (c *ProgressConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("progress: delay cannot be negative, got %s", c.Delay)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("progress: stop_timeout must be positive, got %s", c.StopTimeout)
	}
	return nil
}
