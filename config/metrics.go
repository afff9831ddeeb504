package config

import "errors"

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 是否注册 prometheus 指标
	Enable bool `json:"enable" yaml:"enable" toml:"enable"`

	// Namespace 指标名前缀
	// 默认值: "pgas"
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    true,
		Namespace: "pgas",
	}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if c.Enable && c.Namespace == "" {
		return errors.New("metrics: namespace cannot be empty")
	}
	return nil
}
