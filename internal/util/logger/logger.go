// Package logger 提供 go-pgas 的统一日志系统
//
// 每个子系统一个 *slog.Logger，共享同一个输出目标；级别可在运行时按子系统
// 或全局调整，已派生的 Logger（With/WithGroup）同样生效。
//
// 子系统与运行时的日志通道对应：
//
//	init, finalize, heap, fence, progress, asr, rendezvous, lifecycle, storage, pgas, cmd
//
// 使用示例:
//
//	var log = logger.Logger("heap")
//
//	log.Debug("PUBLISH", "heap", i, "base", base, "size", size)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	settingsOnce sync.Once
	settings     Settings

	mu      sync.Mutex
	levels  = map[string]*slog.LevelVar{}
	loggers = map[string]*slog.Logger{}

	out = &switchWriter{w: os.Stderr}
)

func envSettings() Settings {
	settingsOnce.Do(func() {
		settings = ParseSettings(os.Getenv(EnvLogLevel), os.Getenv(EnvLogFormat), os.Getenv(EnvLogAddSource))
	})
	return settings
}

// Logger 返回子系统的 Logger，同一子系统总是返回同一实例
func Logger(subsystem string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[subsystem]; ok {
		return l
	}

	s := envSettings()
	lv := new(slog.LevelVar)
	lv.Set(s.Level(subsystem))

	opts := &slog.HandlerOptions{
		Level:       lv,
		AddSource:   s.AddSource,
		ReplaceAttr: replaceAttr,
	}
	var h slog.Handler
	if s.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	l := slog.New(h).With("subsystem", subsystem)
	levels[subsystem] = lv
	loggers[subsystem] = l
	return l
}

// replaceAttr 时间键改为 ts，级别小写
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToLower(l.String()))
		}
	}
	return a
}

// SetLevel 调整子系统级别；子系统尚未创建时忽略
func SetLevel(subsystem string, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if lv, ok := levels[subsystem]; ok {
		lv.Set(level)
	}
}

// SetGlobalLevel 调整所有已创建子系统的级别
func SetGlobalLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	for _, lv := range levels {
		lv.Set(level)
	}
}

// SetOutput 切换全局输出目标，已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	out.set(w)
}

// switchWriter 可替换目标的 writer
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}
