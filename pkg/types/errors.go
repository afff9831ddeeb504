// Package types 定义 go-pgas 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              身份相关错误
// ============================================================================

var (
	// ErrInvalidJobSize 作业规模无效
	ErrInvalidJobSize = errors.New("invalid job size")

	// ErrRankOutOfRange Rank 超出作业范围
	ErrRankOutOfRange = errors.New("rank out of range")

	// ErrInvalidPeerCount 本地节点数无效
	ErrInvalidPeerCount = errors.New("invalid local peer count")

	// ErrPeerListMismatch 本地节点列表与数量不一致
	ErrPeerListMismatch = errors.New("local peer list does not match peer count")

	// ErrRankNotLocal 本进程编号不在本地节点列表中
	ErrRankNotLocal = errors.New("rank missing from local peer list")
)

// ============================================================================
//                              堆相关错误
// ============================================================================

var (
	// ErrInvalidHeapIndex 堆索引无效
	ErrInvalidHeapIndex = errors.New("invalid heap index")

	// ErrAddressOutOfHeap 地址不在对称堆范围内
	ErrAddressOutOfHeap = errors.New("address outside symmetric heap")
)
