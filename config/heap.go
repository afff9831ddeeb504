package config

import (
	"fmt"

	"github.com/pbnjay/memory"
)

// HeapConfig 对称堆配置
type HeapConfig struct {
	// Count 每个进程的对称堆数量
	// 默认值: 1
	Count int `json:"count" yaml:"count" toml:"count"`

	// Size 每个对称堆的字节数（Sizes 未设置时使用）
	// 默认值: 32 MiB
	Size uint64 `json:"size" yaml:"size" toml:"size"`

	// Sizes 按堆索引指定的字节数，长度必须等于 Count
	Sizes []uint64 `json:"sizes,omitempty" yaml:"sizes,omitempty" toml:"sizes,omitempty"`

	// AlignedAddresses 假设所有进程的对称堆位于相同虚拟地址
	// 启用时初始化阶段执行地址随机化检查
	// 默认值: true
	AlignedAddresses bool `json:"aligned_addresses" yaml:"aligned_addresses" toml:"aligned_addresses"`

	// ExchangeParallelism 交换阶段并发拉取的上限
	// 默认值: 16
	ExchangeParallelism int `json:"exchange_parallelism" yaml:"exchange_parallelism" toml:"exchange_parallelism"`
}

// DefaultHeapConfig 返回默认对称堆配置
func DefaultHeapConfig() HeapConfig {
	return HeapConfig{
		Count:               1,
		Size:                32 << 20,
		AlignedAddresses:    true,
		ExchangeParallelism: 16,
	}
}

// HeapSizes 返回每个堆的字节数
func (c *HeapConfig) HeapSizes() []uint64 {
	if len(c.Sizes) > 0 {
		out := make([]uint64, len(c.Sizes))
		copy(out, c.Sizes)
		return out
	}
	out := make([]uint64, c.Count)
	for i := range out {
		out[i] = c.Size
	}
	return out
}

// TotalSize 返回所有堆的总字节数
func (c *HeapConfig) TotalSize() uint64 {
	var total uint64
	for _, s := range c.HeapSizes() {
		total += s
	}
	return total
}

// totalMemory 物理内存探测，测试可替换
var totalMemory = memory.TotalMemory

// Validate 验证对称堆配置
func (c *HeapConfig) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("heap: count must be positive, got %d", c.Count)
	}
	if len(c.Sizes) > 0 && len(c.Sizes) != c.Count {
		return fmt.Errorf("heap: %d sizes given for %d heaps", len(c.Sizes), c.Count)
	}
	for i, s := range c.HeapSizes() {
		if s == 0 {
			return fmt.Errorf("heap: heap %d has zero size", i)
		}
	}
	if c.ExchangeParallelism <= 0 {
		return fmt.Errorf("heap: exchange_parallelism must be positive, got %d", c.ExchangeParallelism)
	}
	// 无法探测物理内存时跳过
	if phys := totalMemory(); phys > 0 && c.TotalSize() > phys {
		return fmt.Errorf("heap: total symmetric size %d exceeds physical memory %d", c.TotalSize(), phys)
	}
	return nil
}
