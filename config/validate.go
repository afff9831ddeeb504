package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil 配置。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateSubConfig 验证特定子配置
//
// 用于单独验证某个子配置而不验证整个配置树。
type ValidateSubConfig interface {
	Validate() error
}

var (
	_ ValidateSubConfig = (*BootstrapConfig)(nil)
	_ ValidateSubConfig = (*HeapConfig)(nil)
	_ ValidateSubConfig = (*ProgressConfig)(nil)
	_ ValidateSubConfig = (*RendezvousConfig)(nil)
	_ ValidateSubConfig = (*StorageConfig)(nil)
	_ ValidateSubConfig = (*MetricsConfig)(nil)
)

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}

// ValidateForJob 验证配置是否适用于给定规模的作业
//
// 进程内 rendezvous 只能服务运行在同一进程中的 PE；
// 网络 rendezvous 下作业规模由服务端决定，此处不做限制。
func ValidateForJob(c *Config, npes int) error {
	if err := ValidateAll(c); err != nil {
		return err
	}
	if npes <= 0 {
		return fmt.Errorf("job size must be positive, got %d", npes)
	}
	if c.Rendezvous.IsLocal() {
		// 进程内所有 PE 的对称堆共享同一地址空间
		total := c.Heap.TotalSize() * uint64(npes)
		if phys := totalMemory(); phys > 0 && total > phys {
			return fmt.Errorf("in-process job of %d PEs needs %d bytes of symmetric heap, physical memory is %d",
				npes, total, phys)
		}
	}
	return nil
}
