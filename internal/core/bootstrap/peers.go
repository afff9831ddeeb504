package bootstrap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dep2p/go-pgas/pkg/types"
)

// ParsePeerList 解析逗号分隔的本地对等进程列表，例如 "0,1,2,3"
//
// 空字符串返回空列表。
func ParsePeerList(s string) ([]types.Rank, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]types.Rank, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeerList, s)
		}
		out = append(out, types.Rank(n))
	}
	return out, nil
}

// FormatPeerList 将对等进程列表格式化为逗号分隔字符串
func FormatPeerList(peers []types.Rank) string {
	parts := make([]string, len(peers))
	for i, r := range peers {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
