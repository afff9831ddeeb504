package progress

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidRankList rank 列表无法解析
var ErrInvalidRankList = errors.New("invalid rank list")

// ParseRankList 解析逗号分隔的 rank 列表
func ParseRankList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidRankList
	}

	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, ErrInvalidRankList
		}
		out = append(out, n)
	}
	return out, nil
}

// Required 判断 rank 是否需要进度线程
//
// 以 "all" 开头（大小写不敏感）选择所有进程；否则按 rank 列表匹配。
// 空值与无法解析的列表均视为不匹配。
func Required(spec string, rank int) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return false
	}
	if len(spec) >= 3 && strings.EqualFold(spec[:3], "all") {
		return true
	}

	ranks, err := ParseRankList(spec)
	if err != nil {
		log.Debug("progress rank list unparseable, not running a poller", "value", spec)
		return false
	}
	for _, r := range ranks {
		if r == rank {
			return true
		}
	}
	return false
}
