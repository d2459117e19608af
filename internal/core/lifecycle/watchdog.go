package lifecycle

import (
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	watchdog "github.com/raulk/go-watchdog"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
)

// ============================================================================
//                              内存看门狗
// ============================================================================

// MemoryWatchdog 把 go-watchdog 的 GC 通知接到管理器的低内存检查上
//
// 看门狗按水位策略强制 GC；每次 GC 完成后（按 CheckInterval 限速）
// 调用一次 IsLowMemory，低于阈值时约束回调会被触发。
// go-watchdog 是进程级单例，同一时刻只能运行一个 MemoryWatchdog。
type MemoryWatchdog struct {
	m         *Manager
	cfg       config.WatchdogConfig
	threshold uint64
	limiter   *rate.Limiter

	mu         sync.Mutex
	stopFn     func()
	unregister func()

	checks atomic.Int64
}

// NewMemoryWatchdog 创建内存看门狗，thresholdMB 为 0 时使用管理器的默认阈值
func NewMemoryWatchdog(m *Manager, cfg config.WatchdogConfig, thresholdMB uint64) *MemoryWatchdog {
	limit := rate.Inf
	if interval := cfg.CheckInterval.Duration(); interval > 0 {
		limit = rate.Every(interval)
	}
	return &MemoryWatchdog{
		m:         m,
		cfg:       cfg,
		threshold: thresholdMB,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Start 启动看门狗，模式为 off 时不做任何事
func (w *MemoryWatchdog) Start() error {
	if !w.cfg.Enabled() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopFn != nil {
		return nil
	}

	limit := uint64(w.cfg.Limit.Bytes())
	if limit == 0 {
		limit = memory.TotalMemory()
	}

	watchdog.Logger = log.Zap().Named("watchdog").Sugar()
	policy := watchdog.NewWatermarkPolicy(w.cfg.Watermarks...)

	var (
		err  error
		stop func()
	)
	switch w.cfg.Mode {
	case config.WatchdogHeap:
		err, stop = watchdog.HeapDriven(limit, w.cfg.MinGOGC, policy)
	default:
		err, stop = watchdog.SystemDriven(limit, w.cfg.Frequency.Duration(), policy)
	}
	if err != nil {
		return err
	}

	w.stopFn = stop
	w.unregister = watchdog.RegisterPostGCNotifee(w.check)

	logger.Info("内存看门狗已启动", "mode", w.cfg.Mode, "limit", limit)
	return nil
}

// Stop 停止看门狗
func (w *MemoryWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.unregister != nil {
		w.unregister()
		w.unregister = nil
	}
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
		logger.Info("内存看门狗已停止")
	}
}

// Checks 返回已执行的低内存检查次数
func (w *MemoryWatchdog) Checks() int {
	return int(w.checks.Load())
}

// check GC 完成后的回调
func (w *MemoryWatchdog) check() {
	if !w.limiter.Allow() {
		return
	}

	w.checks.Add(1)

	if _, _, err := w.m.IsLowMemory(w.threshold); err != nil {
		logger.Debug("低内存检查失败", "err", err)
	}
}
