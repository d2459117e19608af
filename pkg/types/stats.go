package types

import "time"

// ============================================================================
//                              分配器统计
// ============================================================================

// AllocatorStats 块分配器统计快照
//
// 计数器单调递增，只有显式 ResetStats 才会归零。
type AllocatorStats struct {
	AllocCalls    uint64 `json:"alloc_calls"`
	FreeCalls     uint64 `json:"free_calls"`
	PoolHits      uint64 `json:"pool_hits"`
	PoolMisses    uint64 `json:"pool_misses"`
	BytesFromHeap uint64 `json:"bytes_from_heap"`
	LockWaitNs    uint64 `json:"lock_wait_ns"`
}

// HitRatio 返回命中率，无调用时返回 0
func (s AllocatorStats) HitRatio() float64 {
	total := s.PoolHits + s.PoolMisses
	if total == 0 {
		return 0
	}
	return float64(s.PoolHits) / float64(total)
}

// ============================================================================
//                              连接池统计
// ============================================================================

// PoolStats 传输连接池与批量发送统计快照
type PoolStats struct {
	// Pooled 当前池中条目数
	Pooled int `json:"pooled"`

	// Busy 当前被占用的条目数
	Busy int `json:"busy"`

	// Hits 复用已有连接的 Connect 次数
	Hits uint64 `json:"hits"`

	// Misses 调用底层 Connect 的次数
	Misses uint64 `json:"misses"`

	// Overflow 池满后未被跟踪的连接数
	Overflow uint64 `json:"overflow"`

	// Flushes 非空批次刷新次数
	Flushes uint64 `json:"flushes"`

	// FlushedBytes 通过批次刷新发出的字节数
	FlushedBytes uint64 `json:"flushed_bytes"`

	// FlushFailures 底层发送失败的刷新次数
	FlushFailures uint64 `json:"flush_failures"`

	// DirectSends 绕过批次直接发送的次数
	DirectSends uint64 `json:"direct_sends"`

	// DroppedEntries 关闭时丢弃的未刷新条目数
	DroppedEntries uint64 `json:"dropped_entries"`
}

// ============================================================================
//                              进程与内存
// ============================================================================

// MemoryStats 当前进程的内存占用
type MemoryStats struct {
	RSSBytes uint64 `json:"rss_bytes"`
	VMSBytes uint64 `json:"vms_bytes"`
}

// RSSMB 返回常驻内存（MB）
func (m MemoryStats) RSSMB() uint64 { return m.RSSBytes >> 20 }

// VMSMB 返回虚拟内存（MB）
func (m MemoryStats) VMSMB() uint64 { return m.VMSBytes >> 20 }

// ProcessInfo 进程表条目快照
type ProcessInfo struct {
	PID       int      `json:"pid"`
	Priority  Priority `json:"priority"`
	NiceValue int      `json:"nice_value"`
	Active    bool     `json:"active"`
}

// ShutdownRecord 一次优雅关闭的记录
type ShutdownRecord struct {
	PID      int             `json:"pid"`
	Outcome  ShutdownOutcome `json:"outcome"`
	Polls    int             `json:"polls"`
	Duration time.Duration   `json:"duration"`
	At       time.Time       `json:"at"`
	Err      string          `json:"error,omitempty"`
}
