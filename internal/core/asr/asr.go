// Package asr 检查地址空间随机化是否与对齐地址假设冲突
//
// 对称堆以相同虚拟地址出现在每个进程中时，远程地址可以直接使用
// 本地地址计算。内核开启 ASLR 时该假设可能不成立，此时由每个节点
// 的首个本地进程输出一条警告。检查本身从不失败。
package asr

import (
	"os"

	"github.com/dep2p/go-pgas/internal/util/logger"
	"github.com/dep2p/go-pgas/pkg/types"
)

var log = logger.Logger("asr")

const (
	// Variable 内核参数名
	Variable = "randomize_va_space"

	// DefaultPath 内核参数文件
	DefaultPath = "/proc/sys/kernel/" + Variable
)

// Result 检查结果
type Result int

const (
	// ResultUnknown 无法读取内核参数
	ResultUnknown Result = iota

	// ResultDisabled 随机化已关闭
	ResultDisabled

	// ResultSuppressed 随机化已开启，但本进程不是节点报告者
	ResultSuppressed

	// ResultWarned 随机化已开启，本进程输出了警告
	ResultWarned
)

// String 返回结果的字符串表示
func (r Result) String() string {
	switch r {
	case ResultUnknown:
		return "unknown"
	case ResultDisabled:
		return "disabled"
	case ResultSuppressed:
		return "suppressed"
	case ResultWarned:
		return "warned"
	default:
		return "invalid"
	}
}

// Source 读取内核参数的首字节
type Source func() (byte, error)

// FileSource 返回从文件读取首字节的 Source
func FileSource(path string) Source {
	return func() (byte, error) {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		var buf [1]byte
		n, err := f.Read(buf[:])
		if n < 1 {
			return 0, err
		}
		return buf[0], nil
	}
}

// Options 检查选项
type Options struct {
	// Source 参数来源，nil 时读取 DefaultPath
	Source Source

	// Hostname 主机名来源，nil 时使用 os.Hostname
	Hostname func() (string, error)
}

// Check 执行地址随机化检查
//
// 只产生日志副作用：读取失败时静默返回 ResultUnknown。
func Check(id types.ProcessIdentity, opts Options) Result {
	src, origin := opts.Source, "custom"
	if src == nil {
		src, origin = FileSource(DefaultPath), DefaultPath
	}

	setting, err := src()
	if err != nil {
		log.Debug("address randomization setting unreadable", "source", origin, "err", err)
		return ResultUnknown
	}

	if setting == '0' {
		return ResultDisabled
	}

	if !id.IsReporter() {
		return ResultSuppressed
	}

	hostFn := opts.Hostname
	if hostFn == nil {
		hostFn = os.Hostname
	}
	host, err := hostFn()
	if err != nil {
		host = "unknown"
	}

	log.Warn("aligned addresses requested, but this node appears to have address randomization enabled",
		"host", host,
		"setting", Variable+" = "+string(rune(setting)))
	return ResultWarned
}
