// Package logger 提供统一的日志接口
//
// 环境变量：
//   - PGAS_LOG_LEVEL: 日志级别，可按子系统覆盖
//     格式: 子系统=级别,...,默认级别
//     示例: heap=debug,fence=warn,info
//   - PGAS_LOG_FORMAT: text（默认）或 json
//   - PGAS_LOG_ADD_SOURCE: 非空且不为 0/false 时输出源码位置
package logger

import (
	"log/slog"
	"strings"
)

// 环境变量名
const (
	EnvLogLevel     = "PGAS_LOG_LEVEL"
	EnvLogFormat    = "PGAS_LOG_FORMAT"
	EnvLogAddSource = "PGAS_LOG_ADD_SOURCE"
)

// Format 日志输出格式
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Settings 从环境变量解析出的日志设置
type Settings struct {
	// Default 未单独配置的子系统使用的级别
	Default slog.Level

	// Subsystems 按子系统覆盖的级别
	Subsystems map[string]slog.Level

	Format    Format
	AddSource bool
}

// Level 返回子系统的生效级别
func (s Settings) Level(subsystem string) slog.Level {
	if l, ok := s.Subsystems[subsystem]; ok {
		return l
	}
	return s.Default
}

// ParseSettings 解析三个环境变量的原始值
//
// 无法识别的级别名被忽略，不报错。
func ParseSettings(level, format, addSource string) Settings {
	s := Settings{
		Default:    slog.LevelInfo,
		Subsystems: map[string]slog.Level{},
		Format:     FormatText,
	}

	for _, part := range strings.Split(level, ",") {
		part = strings.TrimSpace(part)
		name, lv, scoped := strings.Cut(part, "=")
		if !scoped {
			lv = name
		}
		l, ok := ParseLevel(strings.TrimSpace(lv))
		switch {
		case !ok:
		case scoped:
			s.Subsystems[strings.TrimSpace(name)] = l
		default:
			s.Default = l
		}
	}

	if strings.EqualFold(strings.TrimSpace(format), string(FormatJSON)) {
		s.Format = FormatJSON
	}
	switch strings.ToLower(strings.TrimSpace(addSource)) {
	case "", "0", "false":
	default:
		s.AddSource = true
	}
	return s
}

// ParseLevel 解析级别名（debug, info, warn/warning, error），大小写不敏感
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
