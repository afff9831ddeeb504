package heapx

import (
	"encoding/binary"
	"fmt"

	"github.com/dep2p/go-pgas/pkg/types"
)

// Key 返回 (owner, heap, field) 对应的 rendezvous 键
func Key(owner types.Rank, heap int, field types.HeapField) string {
	return fmt.Sprintf("%d:heapx:%d:%s", owner, heap, field)
}

// BaseKey 返回基地址键
func BaseKey(owner types.Rank, heap int) string {
	return Key(owner, heap, types.HeapFieldBase)
}

// SizeKey 返回大小键
func SizeKey(owner types.Rank, heap int) string {
	return Key(owner, heap, types.HeapFieldSize)
}

// EncodeValue 编码为 8 字节大端序
func EncodeValue(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeValue 解码 8 字节大端序
func DecodeValue(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidValue, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
