package interfaces

import "github.com/dep2p/go-mobiletun/pkg/types"

// Allocator 固定块大小的空闲链表分配器
//
// 所有方法并发安全。
type Allocator interface {
	// Acquire 获取一个块，堆分配失败时返回 nil
	Acquire() []byte

	// Release 归还由本分配器分配的块
	Release(block []byte)

	// BlockSize 返回块大小
	BlockSize() int

	// StatsSnapshot 返回统计快照
	StatsSnapshot() types.AllocatorStats

	// ResetStats 清零统计
	ResetStats()

	// DrainAll 释放空闲链表中的所有块
	DrainAll()
}
