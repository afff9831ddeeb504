package types

import "strconv"

// ============================================================================
//                              Rank - 进程编号
// ============================================================================

// Rank 作业中进程（PE）的编号，取值范围 [0, JobSize)
type Rank int

// String 返回 Rank 的字符串表示
func (r Rank) String() string {
	return strconv.Itoa(int(r))
}

// Valid 检查 Rank 在给定作业规模下是否有效
func (r Rank) Valid(jobSize int) bool {
	return r >= 0 && int(r) < jobSize
}

// ============================================================================
//                              ContextID - 通信上下文标识
// ============================================================================

// ContextID 通信上下文标识
//
// 上下文划定一组远程内存操作及其完成/排序状态的范围。
type ContextID uint64

// DefaultContextID 默认上下文标识
const DefaultContextID ContextID = 0

// String 返回 ContextID 的字符串表示
func (c ContextID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
