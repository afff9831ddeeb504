package types

import "fmt"

// ProcessIdentity 进程在作业中的身份
//
// 由 BootstrapCoordinator.Init 创建一次，此后不可变。
type ProcessIdentity struct {
	// Rank 本进程编号
	Rank Rank

	// JobSize 作业中进程总数
	JobSize int

	// LocalPeerCount 同一节点上的进程数
	LocalPeerCount int

	// LocalPeerRanks 同一节点上的进程编号（有序）
	//
	// LocalPeerRanks[0] 是该节点的指定报告者。
	LocalPeerRanks []Rank
}

// Validate 检查身份是否描述一个一致的作业
func (id ProcessIdentity) Validate() error {
	if id.JobSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidJobSize, id.JobSize)
	}
	if !id.Rank.Valid(id.JobSize) {
		return fmt.Errorf("%w: rank %d, job size %d", ErrRankOutOfRange, id.Rank, id.JobSize)
	}
	if id.LocalPeerCount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPeerCount, id.LocalPeerCount)
	}
	if len(id.LocalPeerRanks) != id.LocalPeerCount {
		return fmt.Errorf("%w: count %d, list %d", ErrPeerListMismatch, id.LocalPeerCount, len(id.LocalPeerRanks))
	}
	self := id.LocalPeerCount == 0
	for _, r := range id.LocalPeerRanks {
		if !r.Valid(id.JobSize) {
			return fmt.Errorf("%w: local peer %d, job size %d", ErrRankOutOfRange, r, id.JobSize)
		}
		if r == id.Rank {
			self = true
		}
	}
	if !self {
		return fmt.Errorf("%w: rank %d, peers %v", ErrRankNotLocal, id.Rank, id.LocalPeerRanks)
	}
	return nil
}

// Reporter 返回本节点的指定报告者
//
// 没有本地节点信息时返回 false。
func (id ProcessIdentity) Reporter() (Rank, bool) {
	if id.LocalPeerCount <= 0 || len(id.LocalPeerRanks) == 0 {
		return 0, false
	}
	return id.LocalPeerRanks[0], true
}

// IsReporter 本进程是否负责代表本节点输出诊断信息
//
// 没有本地节点信息时每个进程都视为报告者；
// 有节点信息时只有编号等于 LocalPeerRanks[0] 的进程报告。
func (id ProcessIdentity) IsReporter() bool {
	reporter, ok := id.Reporter()
	if !ok {
		return true
	}
	return id.Rank == reporter
}

// Clone 返回深拷贝
func (id ProcessIdentity) Clone() ProcessIdentity {
	out := id
	if id.LocalPeerRanks != nil {
		out.LocalPeerRanks = make([]Rank, len(id.LocalPeerRanks))
		copy(out.LocalPeerRanks, id.LocalPeerRanks)
	}
	return out
}
