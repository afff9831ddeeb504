package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize 解析带单位后缀的字节数
//
// 支持 K/M/G/T 后缀（1024 进制，大小写不敏感，可选尾随 "B"），
// 例如 "64M"、"1g"、"512KB"、"4096"。
func ParseSize(s string) (uint64, error) {
	str := strings.TrimSpace(strings.ToUpper(s))
	str = strings.TrimSuffix(str, "B")
	if str == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	mult := uint64(1)
	switch str[len(str)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	case 'T':
		mult = 1 << 40
	}
	if mult != 1 {
		str = str[:len(str)-1]
	}

	n, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > ^uint64(0)/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}
