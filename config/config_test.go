package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.Heap.Count)
	assert.True(t, cfg.Heap.AlignedAddresses)
	assert.Equal(t, 1000*time.Nanosecond, cfg.Progress.Delay.Duration())
	assert.Empty(t, cfg.Progress.Threads)
	assert.True(t, cfg.Rendezvous.IsLocal())
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero heaps", func(c *Config) { c.Heap.Count = 0 }},
		{"sizes length mismatch", func(c *Config) { c.Heap.Count = 2; c.Heap.Sizes = []uint64{1} }},
		{"zero heap size", func(c *Config) { c.Heap.Size = 0 }},
		{"zero parallelism", func(c *Config) { c.Heap.ExchangeParallelism = 0 }},
		{"negative delay", func(c *Config) { c.Progress.Delay = -1 }},
		{"zero stop timeout", func(c *Config) { c.Progress.StopTimeout = 0 }},
		{"zero init timeout", func(c *Config) { c.Bootstrap.InitTimeout = 0 }},
		{"retry base above max", func(c *Config) { c.Rendezvous.RetryBase = Duration(time.Hour) }},
		{"zero pool", func(c *Config) { c.Rendezvous.PoolSize = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "rocks" }},
		{"empty metrics namespace", func(c *Config) { c.Metrics.Namespace = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHeapConfig_PhysicalMemory(t *testing.T) {
	orig := totalMemory
	defer func() { totalMemory = orig }()

	totalMemory = func() uint64 { return 1 << 20 }
	cfg := DefaultHeapConfig()
	cfg.Size = 2 << 20
	assert.Error(t, cfg.Validate())

	// 探测失败时不校验
	totalMemory = func() uint64 { return 0 }
	assert.NoError(t, cfg.Validate())
}

func TestHeapConfig_HeapSizes(t *testing.T) {
	cfg := DefaultHeapConfig()
	cfg.Count = 3
	cfg.Size = 4096
	assert.Equal(t, []uint64{4096, 4096, 4096}, cfg.HeapSizes())
	assert.Equal(t, uint64(3*4096), cfg.TotalSize())

	cfg.Sizes = []uint64{1, 2, 3}
	assert.Equal(t, []uint64{1, 2, 3}, cfg.HeapSizes())
}

func TestValidateForJob(t *testing.T) {
	orig := totalMemory
	defer func() { totalMemory = orig }()
	totalMemory = func() uint64 { return 100 << 20 }

	cfg := NewConfig()
	cfg.Heap.Size = 32 << 20

	assert.NoError(t, ValidateForJob(cfg, 2))
	assert.Error(t, ValidateForJob(cfg, 4))
	assert.Error(t, ValidateForJob(cfg, 0))

	// 网络 rendezvous 下每个 PE 独立进程
	cfg.Rendezvous.Addr = "127.0.0.1:7070"
	assert.NoError(t, ValidateForJob(cfg, 4))

	assert.Error(t, ValidateAll(nil))
}

func TestClone(t *testing.T) {
	cfg := NewConfig()
	cfg.Heap.Count = 2
	cfg.Heap.Sizes = []uint64{1, 2}

	clone := cfg.Clone()
	clone.Heap.Sizes[0] = 99
	assert.Equal(t, uint64(1), cfg.Heap.Sizes[0])
}

// ============================================================================
//                              加载
// ============================================================================

func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"heap": {"count": 2, "size": 4096},
		"progress": {"threads": "all", "delay": "5us"},
		"rendezvous": {"addr": "10.0.0.1:7070", "retry_max": 3000000000}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Heap.Count)
	assert.Equal(t, uint64(4096), cfg.Heap.Size)
	assert.Equal(t, "all", cfg.Progress.Threads)
	assert.Equal(t, 5*time.Microsecond, cfg.Progress.Delay.Duration())
	assert.Equal(t, 3*time.Second, cfg.Rendezvous.RetryMax.Duration())
	// 未出现的字段保留默认值
	assert.Equal(t, 10*time.Second, cfg.Progress.StopTimeout.Duration())

	_, err = FromJSON([]byte(`{"nat": {}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"progress": {"delay": "soon"}}`))
	assert.Error(t, err)
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
heap:
  count: 2
  sizes: [4096, 8192]
progress:
  threads: "0,3"
  delay: 2ms
storage:
  backend: badger
  data_dir: /tmp/rdv
`))
	require.NoError(t, err)

	assert.Equal(t, []uint64{4096, 8192}, cfg.Heap.HeapSizes())
	assert.Equal(t, "0,3", cfg.Progress.Threads)
	assert.Equal(t, 2*time.Millisecond, cfg.Progress.Delay.Duration())
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("/tmp/rdv", "rendezvous.db"), cfg.Storage.DBPath())

	empty, err := FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), empty)

	_, err = FromYAML([]byte("unknown: 1\n"))
	assert.Error(t, err)
}

func TestFromTOML(t *testing.T) {
	cfg, err := FromTOML([]byte(`
[heap]
count = 4
aligned_addresses = false

[progress]
threads = "ALL"
delay = "10us"

[rendezvous]
addr = "rdv:7070"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Heap.Count)
	assert.False(t, cfg.Heap.AlignedAddresses)
	assert.Equal(t, "ALL", cfg.Progress.Threads)
	assert.Equal(t, 10*time.Microsecond, cfg.Progress.Delay.Duration())
	assert.Equal(t, "rdv:7070", cfg.Rendezvous.Addr)

	_, err = FromTOML([]byte("[nat]\nenable = true\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	cfg, err := Load(write("a.json", `{"heap": {"count": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Heap.Count)

	cfg, err = Load(write("a.yml", "heap:\n  count: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Heap.Count)

	cfg, err = Load(write("a.toml", "[heap]\ncount = 7\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Heap.Count)

	_, err = Load(write("a.ini", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestToJSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Progress.Delay = Duration(3 * time.Microsecond)

	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"delay": "3µs"`)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

// ============================================================================
//                              环境变量
// ============================================================================

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func TestApplyEnv(t *testing.T) {
	t.Run("all overrides", func(t *testing.T) {
		withEnv(t, map[string]string{
			EnvProgressThreads: "all",
			EnvProgressDelay:   "2500",
			EnvRendezvousAddr:  " 10.1.1.1:7070 ",
			EnvHeapSize:        "64M",
			EnvHeaps:           "2",
		})
		cfg := NewConfig()
		require.NoError(t, cfg.ApplyEnv())

		assert.Equal(t, "all", cfg.Progress.Threads)
		assert.Equal(t, 2500*time.Nanosecond, cfg.Progress.Delay.Duration())
		assert.Equal(t, "10.1.1.1:7070", cfg.Rendezvous.Addr)
		assert.Equal(t, uint64(64<<20), cfg.Heap.Size)
		assert.Equal(t, 2, cfg.Heap.Count)
	})

	t.Run("shmem synonym", func(t *testing.T) {
		withEnv(t, map[string]string{EnvShmemProgressThreads: "1,2"})
		cfg := NewConfig()
		require.NoError(t, cfg.ApplyEnv())
		assert.Equal(t, "1,2", cfg.Progress.Threads)
	})

	t.Run("pgas wins over shmem", func(t *testing.T) {
		withEnv(t, map[string]string{
			EnvProgressThreads:      "0",
			EnvShmemProgressThreads: "all",
		})
		cfg := NewConfig()
		require.NoError(t, cfg.ApplyEnv())
		assert.Equal(t, "0", cfg.Progress.Threads)
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, env := range []map[string]string{
			{EnvProgressDelay: "later"},
			{EnvHeapSize: "lots"},
			{EnvHeaps: "two"},
		} {
			withEnv(t, env)
			assert.Error(t, NewConfig().ApplyEnv())
		}
	})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"4096", 4096, false},
		{"64M", 64 << 20, false},
		{"1g", 1 << 30, false},
		{"512KB", 512 << 10, false},
		{" 2T ", 2 << 40, false},
		{"", 0, true},
		{"M", 0, true},
		{"-1", 0, true},
		{"99999999999999T", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
