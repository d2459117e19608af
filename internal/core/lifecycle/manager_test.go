package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// ============================================================================
// 测试替身
// ============================================================================

// fakeController 记录调用的进程控制实现
type fakeController struct {
	mu sync.Mutex

	// exitAfter 第几次轮询时报告退出，0 表示永不退出
	exitAfter int

	termErr error
	waitErr error
	killErr error
	niceErr error

	terms int
	polls int
	kills int
	waits int
	nice  map[int]int
}

func newFakeController() *fakeController {
	return &fakeController{nice: make(map[int]int)}
}

func (f *fakeController) Terminate(int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms++
	return f.termErr
}

func (f *fakeController) Kill(int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills++
	return f.killErr
}

func (f *fakeController) WaitNonBlocking(int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.waitErr != nil {
		return false, f.waitErr
	}
	return f.exitAfter > 0 && f.polls >= f.exitAfter, nil
}

func (f *fakeController) Wait(int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	return nil
}

func (f *fakeController) SetPriority(pid int, nice int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.niceErr != nil {
		return f.niceErr
	}
	f.nice[pid] = nice
	return nil
}

func (f *fakeController) counts() (terms, polls, kills, waits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terms, f.polls, f.kills, f.waits
}

// fakeMemory 固定返回值的内存读取器
type fakeMemory struct {
	available uint64
	process   types.MemoryStats
	err       error
}

func (f *fakeMemory) AvailableMemory(context.Context) (uint64, error) {
	return f.available, f.err
}

func (f *fakeMemory) ProcessMemory(context.Context) (types.MemoryStats, error) {
	return f.process, f.err
}

func testLifecycleConfig() config.LifecycleConfig {
	cfg := config.DefaultLifecycleConfig()
	cfg.PollInterval = config.Duration(time.Millisecond)
	return cfg
}

func newTestManager(t *testing.T, cfg config.LifecycleConfig, opts ...Option) (*Manager, *fakeController) {
	t.Helper()
	ctl := newFakeController()
	opts = append([]Option{WithController(ctl), WithMemoryReader(&fakeMemory{available: 1 << 30})}, opts...)
	m, err := New(cfg, opts...)
	require.NoError(t, err)
	return m, ctl
}

// ============================================================================
// 状态机
// ============================================================================

// TestManager_SetState 测试状态变化才触发回调
func TestManager_SetState(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())
	assert.Equal(t, types.StateForeground, m.State())

	var transitions [][2]types.BackgroundState
	for i := 0; i < 2; i++ {
		require.NoError(t, m.RegisterStateCallback(func(from, to types.BackgroundState) {
			transitions = append(transitions, [2]types.BackgroundState{from, to})
		}))
	}

	m.SetState(types.StateDoze)
	assert.Len(t, transitions, 2)
	assert.True(t, m.IsDozeMode())

	m.SetState(types.StateDoze)
	assert.Len(t, transitions, 2, "重复设置相同状态不触发回调")

	m.SetState(types.StateForeground)
	require.Len(t, transitions, 4)
	assert.Equal(t, [2]types.BackgroundState{types.StateDoze, types.StateForeground}, transitions[3])
	assert.False(t, m.IsDozeMode())

	t.Log("✅ 状态回调触发次数正确")
}

// TestManager_CallbackTableFull 测试回调表容量
func TestManager_CallbackTableFull(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())

	for i := 0; i < 8; i++ {
		require.NoError(t, m.RegisterStateCallback(func(types.BackgroundState, types.BackgroundState) {}))
		require.NoError(t, m.RegisterConstraintCallback(func(string, int) {}))
	}
	assert.ErrorIs(t, m.RegisterStateCallback(func(types.BackgroundState, types.BackgroundState) {}), ErrCallbackTableFull)
	assert.ErrorIs(t, m.RegisterConstraintCallback(func(string, int) {}), ErrCallbackTableFull)
	assert.ErrorIs(t, m.RegisterStateCallback(nil), ErrNilCallback)
}

// ============================================================================
// 进程表
// ============================================================================

// TestManager_RegisterProcess 测试注册与 nice 值
func TestManager_RegisterProcess(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())

	require.NoError(t, m.RegisterProcess(100, types.PriorityBackground))
	require.NoError(t, m.RegisterProcess(200, types.PriorityCritical))
	assert.Equal(t, 15, ctl.nice[100])
	assert.Equal(t, -10, ctl.nice[200])

	assert.ErrorIs(t, m.RegisterProcess(0, types.PriorityNormal), ErrInvalidPID)
	assert.ErrorIs(t, m.RegisterProcess(-5, types.PriorityNormal), ErrInvalidPID)
	assert.ErrorIs(t, m.RegisterProcess(300, types.Priority(42)), ErrInvalidPriority)

	procs := m.Processes()
	require.Len(t, procs, 2)
	assert.Equal(t, types.ProcessInfo{PID: 100, Priority: types.PriorityBackground, NiceValue: 15, Active: true}, procs[0])
	assert.Equal(t, 2, m.ActiveProcessCount())
}

// TestManager_RegisterProcessNiceFailure 测试 nice 调整失败不影响注册
func TestManager_RegisterProcessNiceFailure(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.niceErr = errors.New("permission denied")

	require.NoError(t, m.RegisterProcess(100, types.PriorityCritical))
	assert.Equal(t, 1, m.ActiveProcessCount())
}

// TestManager_ProcessTableFull 测试进程表容量与槽位复用
func TestManager_ProcessTableFull(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.MaxProcesses = 2
	m, _ := newTestManager(t, cfg)

	require.NoError(t, m.RegisterProcess(1, types.PriorityNormal))
	require.NoError(t, m.RegisterProcess(2, types.PriorityNormal))
	assert.ErrorIs(t, m.RegisterProcess(3, types.PriorityNormal), ErrProcessTableFull)

	// 注销不回收槽位
	require.NoError(t, m.UnregisterProcess(1))
	assert.ErrorIs(t, m.RegisterProcess(3, types.PriorityNormal), ErrProcessTableFull)

	// 同一 pid 复用原条目
	require.NoError(t, m.RegisterProcess(1, types.PriorityLow))
	procs := m.Processes()
	require.Len(t, procs, 2)
	assert.True(t, procs[0].Active)
	assert.Equal(t, types.PriorityLow, procs[0].Priority)
}

// TestManager_UnregisterAndPriority 测试注销与优先级调整
func TestManager_UnregisterAndPriority(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())

	assert.ErrorIs(t, m.UnregisterProcess(100), ErrProcessNotFound)

	require.NoError(t, m.RegisterProcess(100, types.PriorityNormal))
	require.NoError(t, m.SetProcessPriority(100, types.PriorityHigh))
	assert.Equal(t, -5, ctl.nice[100])
	assert.Equal(t, types.PriorityHigh, m.Processes()[0].Priority)

	ctl.niceErr = errors.New("permission denied")
	err := m.SetProcessPriority(100, types.PriorityCritical)
	require.Error(t, err)
	assert.ErrorIs(t, err, ctl.niceErr)
	assert.Equal(t, types.PriorityHigh, m.Processes()[0].Priority, "失败时记录不变")

	require.NoError(t, m.UnregisterProcess(100))
	assert.ErrorIs(t, m.UnregisterProcess(100), ErrProcessNotFound)
	assert.ErrorIs(t, m.SetProcessPriority(100, types.PriorityLow), ErrProcessNotFound)
	assert.Zero(t, m.ActiveProcessCount())
}

// ============================================================================
// 优雅关闭
// ============================================================================

// TestGracefulShutdown_ExitsInTime 测试超时内退出不发送 SIGKILL
func TestGracefulShutdown_ExitsInTime(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.exitAfter = 3
	require.NoError(t, m.RegisterProcess(42, types.PriorityNormal))

	require.NoError(t, m.GracefulShutdown(42, 100*time.Millisecond))

	terms, polls, kills, _ := ctl.counts()
	assert.Equal(t, 1, terms)
	assert.Equal(t, 3, polls)
	assert.Zero(t, kills)

	rec, ok := m.LastShutdown(42)
	require.True(t, ok)
	assert.Equal(t, types.ShutdownExited, rec.Outcome)
	assert.Equal(t, 3, rec.Polls)
	assert.Empty(t, rec.Err)
	assert.Zero(t, m.ActiveProcessCount(), "成功关闭后标记为非活跃")

	t.Log("✅ 超时内退出")
}

// TestGracefulShutdown_Escalates 测试超时后只发送一次 SIGKILL
func TestGracefulShutdown_Escalates(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.PollInterval = config.Duration(10 * time.Millisecond)
	m, ctl := newTestManager(t, cfg)

	require.NoError(t, m.GracefulShutdown(42, 50*time.Millisecond))

	_, polls, kills, waits := ctl.counts()
	assert.Equal(t, 5, polls)
	assert.Equal(t, 1, kills)
	assert.Equal(t, 1, waits)

	rec, _ := m.LastShutdown(42)
	assert.Equal(t, types.ShutdownForceKilled, rec.Outcome)
	assert.Equal(t, uint64(1), m.ShutdownCounts()[types.ShutdownForceKilled])
}

// TestGracefulShutdown_ForceKillFails 测试强制终止失败返回错误
func TestGracefulShutdown_ForceKillFails(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.killErr = errors.New("operation not permitted")

	err := m.GracefulShutdown(42, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForceKillFailed)
	assert.ErrorIs(t, err, ctl.killErr)

	_, _, kills, waits := ctl.counts()
	assert.Equal(t, 1, kills)
	assert.Zero(t, waits)

	rec, _ := m.LastShutdown(42)
	assert.Equal(t, types.ShutdownFailed, rec.Outcome)
	assert.NotEmpty(t, rec.Err)
}

// TestGracefulShutdown_AlreadyGone 测试进程已不存在视为成功
func TestGracefulShutdown_AlreadyGone(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.termErr = ErrNoSuchProcess

	require.NoError(t, m.GracefulShutdown(42, time.Second))

	_, polls, kills, _ := ctl.counts()
	assert.Zero(t, polls)
	assert.Zero(t, kills)

	rec, _ := m.LastShutdown(42)
	assert.Equal(t, types.ShutdownAlreadyGone, rec.Outcome)
}

// TestGracefulShutdown_NoSuchChild 测试非子进程视为成功
func TestGracefulShutdown_NoSuchChild(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.waitErr = ErrNoSuchChild

	require.NoError(t, m.GracefulShutdown(42, time.Second))
	_, polls, kills, _ := ctl.counts()
	assert.Equal(t, 1, polls)
	assert.Zero(t, kills)
}

// TestGracefulShutdown_TerminateFails 测试终止信号发送失败
func TestGracefulShutdown_TerminateFails(t *testing.T) {
	m, ctl := newTestManager(t, testLifecycleConfig())
	ctl.termErr = errors.New("operation not permitted")

	err := m.GracefulShutdown(42, time.Second)
	assert.ErrorIs(t, err, ErrSignalFailed)
	assert.ErrorIs(t, m.GracefulShutdown(0, time.Second), ErrInvalidPID)
}

// TestShutdownHistory_Bounded 测试关闭记录有界
func TestShutdownHistory_Bounded(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.HistorySize = 2
	m, ctl := newTestManager(t, cfg)
	ctl.termErr = ErrNoSuchProcess

	for pid := 1; pid <= 3; pid++ {
		require.NoError(t, m.GracefulShutdown(pid, time.Second))
	}

	history := m.ShutdownHistory()
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].PID)
	assert.Equal(t, 3, history[1].PID)
	_, ok := m.LastShutdown(1)
	assert.False(t, ok)
	assert.Equal(t, uint64(3), m.ShutdownCounts()[types.ShutdownAlreadyGone])
}

// ============================================================================
// 内存
// ============================================================================

// TestManager_IsLowMemory 测试低内存检测与约束回调
func TestManager_IsLowMemory(t *testing.T) {
	memReader := &fakeMemory{available: 50 << 20}
	m, _ := newTestManager(t, testLifecycleConfig(), WithMemoryReader(memReader))

	type event struct {
		reason   string
		severity int
	}
	var events []event
	require.NoError(t, m.RegisterConstraintCallback(func(reason string, severity int) {
		events = append(events, event{reason, severity})
	}))

	low, availMB, err := m.IsLowMemory(0)
	require.NoError(t, err)
	assert.True(t, low)
	assert.Equal(t, uint64(50), availMB)
	assert.Equal(t, []event{{ReasonLowMemory, LowMemorySeverity}}, events)

	memReader.available = 500 << 20
	low, availMB, err = m.IsLowMemory(100)
	require.NoError(t, err)
	assert.False(t, low)
	assert.Equal(t, uint64(500), availMB)
	assert.Len(t, events, 1)

	memReader.err = errors.New("meminfo unavailable")
	_, _, err = m.IsLowMemory(100)
	assert.ErrorIs(t, err, memReader.err)
	assert.Len(t, events, 1)
}

// TestManager_RequestCleanup 测试清理请求的严重程度校验
func TestManager_RequestCleanup(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())

	var severities []int
	require.NoError(t, m.RegisterConstraintCallback(func(reason string, severity int) {
		assert.Equal(t, ReasonCleanupRequest, reason)
		severities = append(severities, severity)
	}))

	assert.ErrorIs(t, m.RequestCleanup(0), ErrInvalidSeverity)
	assert.ErrorIs(t, m.RequestCleanup(11), ErrInvalidSeverity)
	assert.Empty(t, severities)

	require.NoError(t, m.RequestCleanup(1))
	require.NoError(t, m.RequestCleanup(10))
	assert.Equal(t, []int{1, 10}, severities)
}

// TestManager_MemoryStats 测试进程内存统计
func TestManager_MemoryStats(t *testing.T) {
	stats := types.MemoryStats{RSSBytes: 64 << 20, VMSBytes: 512 << 20}
	m, _ := newTestManager(t, testLifecycleConfig(), WithMemoryReader(&fakeMemory{process: stats}))

	got, err := m.MemoryStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(64), got.RSSMB())
	assert.Equal(t, uint64(512), got.VMSMB())
}

// ============================================================================
// 关闭
// ============================================================================

// TestManager_Close 测试关闭所有活跃进程
func TestManager_Close(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.CloseTimeout = config.Duration(5 * time.Millisecond)
	m, ctl := newTestManager(t, cfg)
	ctl.exitAfter = 1

	for pid := 1; pid <= 6; pid++ {
		require.NoError(t, m.RegisterProcess(pid, types.PriorityNormal))
	}
	require.NoError(t, m.UnregisterProcess(6))

	require.NoError(t, m.Close())
	terms, _, _, _ := ctl.counts()
	assert.Equal(t, 5, terms, "只关闭活跃进程")
	assert.Zero(t, m.ActiveProcessCount())

	assert.ErrorIs(t, m.RegisterProcess(7, types.PriorityNormal), ErrClosed)
	assert.NoError(t, m.Close())
}

// TestManager_CloseCollectsErrors 测试关闭错误合并
func TestManager_CloseCollectsErrors(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.CloseTimeout = config.Duration(2 * time.Millisecond)
	m, ctl := newTestManager(t, cfg)
	ctl.killErr = errors.New("operation not permitted")

	require.NoError(t, m.RegisterProcess(1, types.PriorityNormal))
	require.NoError(t, m.RegisterProcess(2, types.PriorityNormal))

	err := m.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForceKillFailed)
	assert.Equal(t, err, m.Close(), "重复关闭返回相同结果")
}

// TestNew_InvalidConfig 测试非法配置
func TestNew_InvalidConfig(t *testing.T) {
	cfg := testLifecycleConfig()
	cfg.MaxCallbacks = 0
	_, err := New(cfg)
	assert.Error(t, err)
}
