// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON、YAML、TOML 加载配置
//   - 支持环境变量覆盖（PGAS_*，兼容 SHMEM_PROGRESS_THREADS）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Progress.Threads = "all"
//
//	// 从文件加载（按扩展名选择格式），再应用环境变量
//	cfg, err := config.Load("pgas.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
package config

// Config 是运行时的完整配置结构
//
// 配置按照功能模块组织：
//   - Bootstrap: 初始化与终结
//   - Heap: 对称堆
//   - Progress: 进度线程
//   - Rendezvous: rendezvous 服务
//   - Storage: rendezvous 服务端存储
//   - Metrics: 指标
type Config struct {
	// Bootstrap 引导配置
	Bootstrap BootstrapConfig `json:"bootstrap" yaml:"bootstrap" toml:"bootstrap"`

	// Heap 对称堆配置
	Heap HeapConfig `json:"heap" yaml:"heap" toml:"heap"`

	// Progress 进度线程配置
	Progress ProgressConfig `json:"progress" yaml:"progress" toml:"progress"`

	// Rendezvous rendezvous 配置
	Rendezvous RendezvousConfig `json:"rendezvous" yaml:"rendezvous" toml:"rendezvous"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage" yaml:"storage" toml:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Bootstrap:  DefaultBootstrapConfig(),
		Heap:       DefaultHeapConfig(),
		Progress:   DefaultProgressConfig(),
		Rendezvous: DefaultRendezvousConfig(),
		Storage:    DefaultStorageConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，遇到第一个无效配置即返回。
func (c *Config) Validate() error {
	if err := c.Bootstrap.Validate(); err != nil {
		return err
	}
	if err := c.Heap.Validate(); err != nil {
		return err
	}
	if err := c.Progress.Validate(); err != nil {
		return err
	}
	if err := c.Rendezvous.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	out := *c
	if c.Heap.Sizes != nil {
		out.Heap.Sizes = append([]uint64(nil), c.Heap.Sizes...)
	}
	return &out
}
