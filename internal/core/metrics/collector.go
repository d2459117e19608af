package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// ============================================================================
//                              数据源
// ============================================================================

// AllocatorSource 块分配器数据源
type AllocatorSource interface {
	StatsSnapshot() types.AllocatorStats
	FreeCount() int
}

// PoolSource 传输连接池数据源
type PoolSource interface {
	Stats() types.PoolStats
	Available() bool
}

// LifecycleSource 生命周期管理器数据源
type LifecycleSource interface {
	State() types.BackgroundState
	ActiveProcessCount() int
	ShutdownCounts() map[types.ShutdownOutcome]uint64
}

// CollectorOption 采集器选项
type CollectorOption func(*Collector)

// WithAllocator 采集块分配器统计
func WithAllocator(src AllocatorSource) CollectorOption {
	return func(c *Collector) { c.allocator = src }
}

// WithPool 采集连接池统计
func WithPool(src PoolSource) CollectorOption {
	return func(c *Collector) { c.pool = src }
}

// WithLifecycle 采集生命周期统计
func WithLifecycle(src LifecycleSource) CollectorOption {
	return func(c *Collector) { c.lifecycle = src }
}

// ============================================================================
//                              采集器
// ============================================================================

// Collector 组件统计的 Prometheus 采集器
type Collector struct {
	allocator AllocatorSource
	pool      PoolSource
	lifecycle LifecycleSource

	allocCalls    *prometheus.Desc
	allocLookups  *prometheus.Desc
	allocHeap     *prometheus.Desc
	allocLockWait *prometheus.Desc
	allocFree     *prometheus.Desc

	poolConns     *prometheus.Desc
	poolConnects  *prometheus.Desc
	poolOverflow  *prometheus.Desc
	poolFlushes   *prometheus.Desc
	poolFlushed   *prometheus.Desc
	poolDirect    *prometheus.Desc
	poolDropped   *prometheus.Desc
	poolAvailable *prometheus.Desc

	lcState     *prometheus.Desc
	lcActive    *prometheus.Desc
	lcShutdowns *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建采集器
func NewCollector(namespace string, opts ...CollectorOption) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	c := &Collector{
		allocCalls:    desc("allocator", "calls_total", "Allocator calls by operation.", "op"),
		allocLookups:  desc("allocator", "lookups_total", "Acquire calls served from the free list (hit) or the heap (miss).", "result"),
		allocHeap:     desc("allocator", "heap_bytes_total", "Bytes obtained from the heap."),
		allocLockWait: desc("allocator", "lock_wait_seconds_total", "Time spent waiting for the free list lock."),
		allocFree:     desc("allocator", "free_blocks", "Blocks currently on the free list."),

		poolConns:     desc("pool", "connections", "Pooled connections by state.", "state"),
		poolConnects:  desc("pool", "connects_total", "Connect calls that reused a pooled connection (hit) or dialed the transport (miss).", "result"),
		poolOverflow:  desc("pool", "overflow_total", "Connections left untracked because the pool was full."),
		poolFlushes:   desc("pool", "flushes_total", "Batch flushes by result.", "result"),
		poolFlushed:   desc("pool", "flushed_bytes_total", "Bytes sent through batch flushes."),
		poolDirect:    desc("pool", "direct_sends_total", "Sends that bypassed batching."),
		poolDropped:   desc("pool", "dropped_entries_total", "Staged entries discarded on close."),
		poolAvailable: desc("pool", "transport_available", "Whether all transport entry points resolved."),

		lcState:     desc("lifecycle", "state", "Current background state.", "state"),
		lcActive:    desc("lifecycle", "active_processes", "Active managed processes."),
		lcShutdowns: desc("lifecycle", "shutdowns_total", "Graceful shutdowns by outcome.", "outcome"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.allocator != nil {
		ch <- c.allocCalls
		ch <- c.allocLookups
		ch <- c.allocHeap
		ch <- c.allocLockWait
		ch <- c.allocFree
	}
	if c.pool != nil {
		ch <- c.poolConns
		ch <- c.poolConnects
		ch <- c.poolOverflow
		ch <- c.poolFlushes
		ch <- c.poolFlushed
		ch <- c.poolDirect
		ch <- c.poolDropped
		ch <- c.poolAvailable
	}
	if c.lifecycle != nil {
		ch <- c.lcState
		ch <- c.lcActive
		ch <- c.lcShutdowns
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.allocator != nil {
		c.collectAllocator(ch)
	}
	if c.pool != nil {
		c.collectPool(ch)
	}
	if c.lifecycle != nil {
		c.collectLifecycle(ch)
	}
}

func (c *Collector) collectAllocator(ch chan<- prometheus.Metric) {
	s := c.allocator.StatsSnapshot()

	ch <- prometheus.MustNewConstMetric(c.allocCalls, prometheus.CounterValue, float64(s.AllocCalls), "alloc")
	ch <- prometheus.MustNewConstMetric(c.allocCalls, prometheus.CounterValue, float64(s.FreeCalls), "free")
	ch <- prometheus.MustNewConstMetric(c.allocLookups, prometheus.CounterValue, float64(s.PoolHits), "hit")
	ch <- prometheus.MustNewConstMetric(c.allocLookups, prometheus.CounterValue, float64(s.PoolMisses), "miss")
	ch <- prometheus.MustNewConstMetric(c.allocHeap, prometheus.CounterValue, float64(s.BytesFromHeap))
	ch <- prometheus.MustNewConstMetric(c.allocLockWait, prometheus.CounterValue, float64(s.LockWaitNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.allocFree, prometheus.GaugeValue, float64(c.allocator.FreeCount()))
}

func (c *Collector) collectPool(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()

	available := 0.0
	if c.pool.Available() {
		available = 1
	}

	ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(s.Busy), "busy")
	ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(s.Pooled-s.Busy), "idle")
	ch <- prometheus.MustNewConstMetric(c.poolConnects, prometheus.CounterValue, float64(s.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(c.poolConnects, prometheus.CounterValue, float64(s.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(c.poolOverflow, prometheus.CounterValue, float64(s.Overflow))
	ch <- prometheus.MustNewConstMetric(c.poolFlushes, prometheus.CounterValue, float64(s.Flushes), "ok")
	ch <- prometheus.MustNewConstMetric(c.poolFlushes, prometheus.CounterValue, float64(s.FlushFailures), "failed")
	ch <- prometheus.MustNewConstMetric(c.poolFlushed, prometheus.CounterValue, float64(s.FlushedBytes))
	ch <- prometheus.MustNewConstMetric(c.poolDirect, prometheus.CounterValue, float64(s.DirectSends))
	ch <- prometheus.MustNewConstMetric(c.poolDropped, prometheus.CounterValue, float64(s.DroppedEntries))
	ch <- prometheus.MustNewConstMetric(c.poolAvailable, prometheus.GaugeValue, available)
}

func (c *Collector) collectLifecycle(ch chan<- prometheus.Metric) {
	current := c.lifecycle.State()
	for st := types.StateForeground; st <= types.StateBatterySaver; st++ {
		v := 0.0
		if st == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.lcState, prometheus.GaugeValue, v, st.String())
	}

	ch <- prometheus.MustNewConstMetric(c.lcActive, prometheus.GaugeValue, float64(c.lifecycle.ActiveProcessCount()))

	counts := c.lifecycle.ShutdownCounts()
	for o := types.ShutdownExited; o <= types.ShutdownFailed; o++ {
		ch <- prometheus.MustNewConstMetric(c.lcShutdowns, prometheus.CounterValue, float64(counts[o]), o.String())
	}
}
