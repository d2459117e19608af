// Package lifecycle 实现后台进程生命周期管理器
//
// 管理器持有三类状态，各自由独立的锁保护：
//   - 后台状态机与两张回调表（状态回调、约束回调）
//   - 受管进程表
//   - 关闭记录
//
// 状态回调与约束回调在管理器锁内同步调用。回调必须简短，
// 且不得再调用同一管理器的 SetState/IsLowMemory/RequestCleanup，
// 否则会死锁。
package lifecycle

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var logger = log.Logger("core/lifecycle")

// 约束回调的原因标识
const (
	ReasonLowMemory      = "low_memory"
	ReasonCleanupRequest = "cleanup_request"

	// LowMemorySeverity 低内存约束的严重程度
	LowMemorySeverity = 8

	minSeverity = 1
	maxSeverity = 10
)

// Option 管理器选项
type Option func(*Manager)

// WithController 替换进程控制实现
func WithController(ctl ProcessController) Option {
	return func(m *Manager) {
		if ctl != nil {
			m.ctl = ctl
		}
	}
}

// WithMemoryReader 替换内存读取实现
func WithMemoryReader(r MemoryReader) Option {
	return func(m *Manager) {
		if r != nil {
			m.mem = r
		}
	}
}

// WithClock 替换时钟
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		if clk != nil {
			m.clk = clk
		}
	}
}

// processRecord 进程表条目
type processRecord struct {
	pid      int
	priority types.Priority
	nice     int
	active   bool
}

// ============================================================================
//                              管理器
// ============================================================================

// Manager 后台进程生命周期管理器
type Manager struct {
	cfg config.LifecycleConfig
	ctl ProcessController
	mem MemoryReader
	clk clock.Clock

	// mu 保护状态机与回调表
	mu                  sync.Mutex
	state               types.BackgroundState
	stateCallbacks      []interfaces.StateCallback
	constraintCallbacks []interfaces.ConstraintCallback

	procMu    sync.Mutex
	processes []processRecord
	closed    bool

	histMu   sync.Mutex
	history  *shutdownHistory
	outcomes [ShutdownOutcomeCount]uint64

	closeOnce sync.Once
	closeErr  error
}

// ShutdownOutcomeCount 关闭结果的种类数
const ShutdownOutcomeCount = int(types.ShutdownFailed) + 1

var _ interfaces.LifecycleManager = (*Manager)(nil)

// New 创建生命周期管理器，初始状态为 FOREGROUND
func New(cfg config.LifecycleConfig, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	history, err := newShutdownHistory(cfg.HistorySize)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:                 cfg,
		ctl:                 NewOSController(),
		mem:                 NewSystemMemoryReader(),
		clk:                 clock.New(),
		state:               types.StateForeground,
		stateCallbacks:      make([]interfaces.StateCallback, 0, cfg.MaxCallbacks),
		constraintCallbacks: make([]interfaces.ConstraintCallback, 0, cfg.MaxCallbacks),
		processes:           make([]processRecord, 0, cfg.MaxProcesses),
		history:             history,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ============================================================================
//                              状态机
// ============================================================================

// SetState 设置后台状态
//
// 新状态与当前状态不同时，在锁内按注册顺序同步调用所有状态回调；
// 相同时不做任何事。
func (m *Manager) SetState(state types.BackgroundState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state == m.state {
		return
	}
	old := m.state
	m.state = state

	logger.Info("后台状态变化", "from", old.String(), "to", state.String())

	for _, cb := range m.stateCallbacks {
		cb(old, state)
	}
}

// State 返回当前状态
func (m *Manager) State() types.BackgroundState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsDozeMode 当前是否处于 Doze 模式
func (m *Manager) IsDozeMode() bool {
	return m.State() == types.StateDoze
}

// RegisterStateCallback 注册状态回调，表满时拒绝
func (m *Manager) RegisterStateCallback(cb interfaces.StateCallback) error {
	if cb == nil {
		return ErrNilCallback
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stateCallbacks) >= m.cfg.MaxCallbacks {
		return ErrCallbackTableFull
	}
	m.stateCallbacks = append(m.stateCallbacks, cb)
	return nil
}

// RegisterConstraintCallback 注册约束回调，表满时拒绝
func (m *Manager) RegisterConstraintCallback(cb interfaces.ConstraintCallback) error {
	if cb == nil {
		return ErrNilCallback
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.constraintCallbacks) >= m.cfg.MaxCallbacks {
		return ErrCallbackTableFull
	}
	m.constraintCallbacks = append(m.constraintCallbacks, cb)
	return nil
}

// notifyConstraint 在锁内调用约束回调
func (m *Manager) notifyConstraint(reason string, severity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cb := range m.constraintCallbacks {
		cb(reason, severity)
	}
}

// ============================================================================
//                              内存
// ============================================================================

// IsLowMemory 检查系统可用内存是否低于阈值
//
// 参数:
//   - thresholdMB: 阈值（MB），0 表示使用配置的默认阈值
//
// 返回:
//   - bool: 是否低于阈值；是则已同步通知约束回调 ("low_memory", 8)
//   - uint64: 可用内存（MB）
//   - error: 读取内存统计失败
func (m *Manager) IsLowMemory(thresholdMB uint64) (bool, uint64, error) {
	if thresholdMB == 0 {
		thresholdMB = m.cfg.LowMemoryThresholdMB
	}

	avail, err := m.mem.AvailableMemory(context.Background())
	if err != nil {
		return false, 0, err
	}
	availMB := avail >> 20

	if availMB >= thresholdMB {
		return false, availMB, nil
	}

	logger.Warn("可用内存低于阈值", "availableMB", availMB, "thresholdMB", thresholdMB)
	m.notifyConstraint(ReasonLowMemory, LowMemorySeverity)
	return true, availMB, nil
}

// RequestCleanup 请求资源清理，severity 必须在 [1, 10]
func (m *Manager) RequestCleanup(severity int) error {
	if severity < minSeverity || severity > maxSeverity {
		return ErrInvalidSeverity
	}
	logger.Info("请求资源清理", "severity", severity)
	m.notifyConstraint(ReasonCleanupRequest, severity)
	return nil
}

// MemoryStats 返回当前进程的内存占用
func (m *Manager) MemoryStats() (types.MemoryStats, error) {
	return m.mem.ProcessMemory(context.Background())
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 优雅关闭所有活跃的受管进程
//
// 每个进程使用 CloseTimeout，最多 CloseConcurrency 个并发。
// 所有失败合并返回。重复调用返回第一次的结果。
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.procMu.Lock()
		m.closed = true
		var pids []int
		for _, p := range m.processes {
			if p.active {
				pids = append(pids, p.pid)
			}
		}
		m.procMu.Unlock()

		if len(pids) == 0 {
			return
		}
		logger.Info("关闭受管进程", "count", len(pids))

		var (
			errMu sync.Mutex
			errs  error
		)
		g := new(errgroup.Group)
		g.SetLimit(m.cfg.CloseConcurrency)
		for _, pid := range pids {
			pid := pid
			g.Go(func() error {
				if err := m.GracefulShutdown(pid, m.cfg.CloseTimeout.Duration()); err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					errMu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
		m.closeErr = errs
	})
	return m.closeErr
}
