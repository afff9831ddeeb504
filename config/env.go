package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 环境变量名
const (
	// EnvProgressThreads 需要进度线程的 rank 列表（"all" 或 "0,2,5"）
	EnvProgressThreads = "PGAS_PROGRESS_THREADS"

	// EnvShmemProgressThreads 与 OpenSHMEM 实现兼容的同义变量
	EnvShmemProgressThreads = "SHMEM_PROGRESS_THREADS"

	// EnvProgressDelay 进度循环休眠（"1us" 或纳秒整数）
	EnvProgressDelay = "PGAS_PROGRESS_DELAY"

	// EnvRendezvousAddr rendezvous 服务地址
	EnvRendezvousAddr = "PGAS_RENDEZVOUS_ADDR"

	// EnvHeapSize 每个对称堆的大小（"64M"）
	EnvHeapSize = "PGAS_HEAP_SIZE"

	// EnvHeaps 对称堆数量
	EnvHeaps = "PGAS_HEAPS"
)

// lookupEnv 环境变量读取，测试可替换
var lookupEnv = os.LookupEnv

// ApplyEnv 用环境变量覆盖配置
//
// PGAS_PROGRESS_THREADS 优先于 SHMEM_PROGRESS_THREADS。
func (c *Config) ApplyEnv() error {
	if v, ok := lookupEnv(EnvProgressThreads); ok {
		c.Progress.Threads = v
	} else if v, ok := lookupEnv(EnvShmemProgressThreads); ok {
		c.Progress.Threads = v
	}

	if v, ok := lookupEnv(EnvProgressDelay); ok {
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProgressDelay, err)
		}
		c.Progress.Delay = Duration(d)
	}

	if v, ok := lookupEnv(EnvRendezvousAddr); ok {
		c.Rendezvous.Addr = strings.TrimSpace(v)
	}

	if v, ok := lookupEnv(EnvHeapSize); ok {
		n, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeapSize, err)
		}
		c.Heap.Size = n
		c.Heap.Sizes = nil
	}

	if v, ok := lookupEnv(EnvHeaps); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeaps, err)
		}
		c.Heap.Count = n
		c.Heap.Sizes = nil
	}

	return nil
}

// parseDelay 解析延迟，纯数字按纳秒处理
func parseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	return time.ParseDuration(s)
}
