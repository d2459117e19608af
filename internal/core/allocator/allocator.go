// Package allocator 实现固定块大小的空闲链表分配器
//
// 分配器供包处理路径使用：每个包的临时缓冲从空闲链表中取出，
// 用完后归还。空闲链表只在 O(1) 的压栈/弹栈期间持锁，
// 堆分配始终在锁外进行。
//
// 统计（命中/未命中、堆字节数、锁等待时间）是构造时开关，
// 关闭后计数器保持为零，也不测量锁等待。
package allocator

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var logger = log.Logger("core/allocator")

// MinNodeSize 最小节点大小（一个指针宽度）
const MinNodeSize = strconv.IntSize / 8

// HeapFunc 从堆上分配 size 字节，失败时返回 nil
type HeapFunc func(size int) []byte

func defaultHeap(size int) []byte {
	return make([]byte, size)
}

// Option 分配器选项
type Option func(*Allocator)

// WithHeap 替换堆分配函数
func WithHeap(fn HeapFunc) Option {
	return func(a *Allocator) {
		if fn != nil {
			a.heap = fn
		}
	}
}

// ============================================================================
//                              分配器
// ============================================================================

// Allocator 固定块大小的空闲链表分配器
type Allocator struct {
	blockSize   int
	enableStats bool
	heap        HeapFunc

	mu          sync.Mutex
	free        [][]byte
	initialized bool

	allocCalls    atomic.Uint64
	freeCalls     atomic.Uint64
	poolHits      atomic.Uint64
	poolMisses    atomic.Uint64
	bytesFromHeap atomic.Uint64
	lockWaitNs    atomic.Uint64
}

var _ interfaces.Allocator = (*Allocator)(nil)

// New 创建分配器
//
// 实际块大小为 max(cfg.BlockSize, MinNodeSize)。cfg.Prealloc 个块会
// 在返回前放入空闲链表，这些块计入 BytesFromHeap 但不计为未命中。
func New(cfg config.AllocatorConfig, opts ...Option) (*Allocator, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.Prealloc < 0 {
		return nil, ErrInvalidPrealloc
	}

	a := &Allocator{
		blockSize:   max(cfg.BlockSize, MinNodeSize),
		enableStats: cfg.EnableStats,
		heap:        defaultHeap,
		initialized: true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Prealloc > 0 {
		a.free = make([][]byte, 0, cfg.Prealloc)
		for i := 0; i < cfg.Prealloc; i++ {
			block := a.heap(a.blockSize)
			if block == nil {
				return nil, ErrPreallocFailed
			}
			a.free = append(a.free, block)
			if a.enableStats {
				a.bytesFromHeap.Add(uint64(a.blockSize))
			}
		}
	}

	logger.Debug("分配器已初始化", "blockSize", a.blockSize, "prealloc", cfg.Prealloc, "stats", a.enableStats)
	return a, nil
}

// BlockSize 返回块大小
func (a *Allocator) BlockSize() int {
	return a.blockSize
}

// Acquire 获取一个块
//
// 空闲链表非空时弹出一个块（命中），否则在锁外从堆分配（未命中）。
// 堆分配失败或分配器已排空时返回 nil。
func (a *Allocator) Acquire() []byte {
	a.lock()
	if !a.initialized {
		a.mu.Unlock()
		return nil
	}
	if a.enableStats {
		a.allocCalls.Add(1)
	}
	if n := len(a.free); n > 0 {
		block := a.free[n-1]
		a.free[n-1] = nil
		a.free = a.free[:n-1]
		a.mu.Unlock()
		if a.enableStats {
			a.poolHits.Add(1)
		}
		return block
	}
	a.mu.Unlock()

	if a.enableStats {
		a.poolMisses.Add(1)
	}
	block := a.heap(a.blockSize)
	if block == nil {
		logger.Warn("堆分配失败", "size", a.blockSize)
		return nil
	}
	if a.enableStats {
		a.bytesFromHeap.Add(uint64(a.blockSize))
	}
	return block
}

// Release 归还块到空闲链表
//
// 块会被恢复到完整长度。nil、容量不足块大小的切片，以及排空后
// 归还的块都会被忽略。
func (a *Allocator) Release(block []byte) {
	if block == nil || cap(block) < a.blockSize {
		return
	}
	block = block[:a.blockSize]

	a.lock()
	if !a.initialized {
		a.mu.Unlock()
		return
	}
	a.free = append(a.free, block)
	a.mu.Unlock()

	if a.enableStats {
		a.freeCalls.Add(1)
	}
}

// FreeCount 返回空闲链表中的块数
func (a *Allocator) FreeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

// Initialized 分配器是否仍可用（DrainAll 之后返回 false）
func (a *Allocator) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// DrainAll 释放空闲链表中的所有块并标记为未初始化
//
// 重复调用是空操作。
func (a *Allocator) DrainAll() {
	a.mu.Lock()
	if !a.initialized {
		a.mu.Unlock()
		return
	}
	drained := len(a.free)
	a.free = nil
	a.initialized = false
	a.mu.Unlock()

	logger.Debug("分配器已排空", "blocks", drained)
}

// ============================================================================
//                              统计
// ============================================================================

// StatsSnapshot 返回统计快照
func (a *Allocator) StatsSnapshot() types.AllocatorStats {
	return types.AllocatorStats{
		AllocCalls:    a.allocCalls.Load(),
		FreeCalls:     a.freeCalls.Load(),
		PoolHits:      a.poolHits.Load(),
		PoolMisses:    a.poolMisses.Load(),
		BytesFromHeap: a.bytesFromHeap.Load(),
		LockWaitNs:    a.lockWaitNs.Load(),
	}
}

// ResetStats 清零统计
func (a *Allocator) ResetStats() {
	a.allocCalls.Store(0)
	a.freeCalls.Store(0)
	a.poolHits.Store(0)
	a.poolMisses.Store(0)
	a.bytesFromHeap.Store(0)
	a.lockWaitNs.Store(0)
}

// lock 加锁，启用统计时累计等待时间
func (a *Allocator) lock() {
	if !a.enableStats {
		a.mu.Lock()
		return
	}
	if a.mu.TryLock() {
		return
	}
	start := time.Now()
	a.mu.Lock()
	a.lockWaitNs.Add(uint64(time.Since(start).Nanoseconds()))
}
