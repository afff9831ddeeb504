package pgas

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-pgas/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// FatalHandler 集合阶段不可恢复错误的处理函数
//
// 引导或堆交换失败意味着作业本身已损坏，其他进程无法继续。
type FatalHandler func(err error)

// DefaultFatalHandler 记录错误并以状态码 1 退出进程
func DefaultFatalHandler(err error) {
	log.Error("fatal runtime error, aborting", "err", err)
	os.Exit(1)
}

// options 内部选项结构
type options struct {
	// 配置来源
	config     *config.Config
	configFile string

	// 配置覆盖，在配置加载与环境变量之后按顺序应用
	overrides []func(*config.Config)

	// 进程内作业
	job *Job

	fatal    FatalHandler
	profiler Profiler

	// 地址随机化参数来源，nil 时读取内核参数文件
	addressSource func() (byte, error)

	// 用户自定义 Fx 选项
	userFx []fx.Option
}

func newOptions() *options {
	return &options{
		fatal: DefaultFatalHandler,
	}
}

// resolveConfig 生成最终配置：文件/显式配置 → 环境变量 → 选项覆盖
func (o *options) resolveConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case o.config != nil:
		cfg = o.config.Clone()
	case o.configFile != "":
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", o.configFile, err)
		}
		cfg = loaded
	default:
		cfg = config.NewConfig()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	for _, fn := range o.overrides {
		fn(cfg)
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用给定配置（会被拷贝）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: config", ErrNilOption)
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON/YAML/TOML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              常用覆盖
// ════════════════════════════════════════════════════════════════════════════

// WithHeapSize 设置对称堆大小，每个参数对应一个堆
func WithHeapSize(sizes ...uint64) Option {
	return func(o *options) error {
		if len(sizes) == 0 {
			return fmt.Errorf("%w: heap sizes", ErrNilOption)
		}
		sizes := append([]uint64(nil), sizes...)
		o.overrides = append(o.overrides, func(c *config.Config) {
			c.Heap.Count = len(sizes)
			c.Heap.Size = sizes[0]
			c.Heap.Sizes = sizes
		})
		return nil
	}
}

// WithProgressThreads 设置需要进度线程的 rank（"all" 或 "0,2,5"）
func WithProgressThreads(spec string) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) {
			c.Progress.Threads = spec
		})
		return nil
	}
}

// WithProgressDelay 设置进度循环的休眠间隔
func WithProgressDelay(d time.Duration) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) {
			c.Progress.Delay = config.Duration(d)
		})
		return nil
	}
}

// WithRendezvous 使用网络 rendezvous 服务
func WithRendezvous(addr string) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) {
			c.Rendezvous.Addr = addr
		})
		return nil
	}
}

// WithMetrics 启用或关闭 prometheus 指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) {
			c.Metrics.Enable = enable
		})
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行时行为
// ════════════════════════════════════════════════════════════════════════════

// WithJob 加入进程内作业
//
// 同一 Job 上创建的多个 Runtime 共享 rendezvous 状态与 loopback 传输。
func WithJob(job *Job) Option {
	return func(o *options) error {
		if job == nil {
			return fmt.Errorf("%w: job", ErrNilOption)
		}
		o.job = job
		return nil
	}
}

// WithFatalHandler 替换致命错误处理
func WithFatalHandler(h FatalHandler) Option {
	return func(o *options) error {
		if h == nil {
			return fmt.Errorf("%w: fatal handler", ErrNilOption)
		}
		o.fatal = h
		return nil
	}
}

// WithProfiler 为 API 调用挂接性能分析
//
// 仅影响 Runtime.API 返回的调用面。
func WithProfiler(p Profiler) Option {
	return func(o *options) error {
		o.profiler = p
		return nil
	}
}

// WithAddressSource 替换地址随机化参数的读取
func WithAddressSource(src func() (byte, error)) Option {
	return func(o *options) error {
		o.addressSource = src
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFx = append(o.userFx, opts...)
		return nil
	}
}
