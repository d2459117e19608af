package lifecycle

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// TestMemoryWatchdog_CheckRateLimited 测试 GC 回调限速触发低内存检查
func TestMemoryWatchdog_CheckRateLimited(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig(), WithMemoryReader(&fakeMemory{available: 10 << 20}))

	fired := 0
	require.NoError(t, m.RegisterConstraintCallback(func(reason string, _ int) {
		if reason == ReasonLowMemory {
			fired++
		}
	}))

	cfg := config.DefaultWatchdogConfig()
	cfg.CheckInterval = config.Duration(time.Hour)
	w := NewMemoryWatchdog(m, cfg, 100)

	for i := 0; i < 5; i++ {
		w.check()
	}
	assert.Equal(t, 1, w.Checks())
	assert.Equal(t, 1, fired)
}

// TestMemoryWatchdog_Unthrottled 测试检查间隔为 0 时不限速
func TestMemoryWatchdog_Unthrottled(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())

	cfg := config.DefaultWatchdogConfig()
	cfg.CheckInterval = 0
	w := NewMemoryWatchdog(m, cfg, 0)

	for i := 0; i < 3; i++ {
		w.check()
	}
	assert.Equal(t, 3, w.Checks())
}

// TestMemoryWatchdog_Off 测试关闭模式下启动为空操作
func TestMemoryWatchdog_Off(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())
	w := NewMemoryWatchdog(m, config.DefaultWatchdogConfig(), 0)

	require.NoError(t, w.Start())
	assert.NotPanics(t, w.Stop)
}

// TestMemoryWatchdog_HeapDriven 测试堆模式下 GC 触发低内存检查，停止后不再触发
func TestMemoryWatchdog_HeapDriven(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig(), WithMemoryReader(&fakeMemory{available: 10 << 20}))

	var lowMemory atomic.Int32
	require.NoError(t, m.RegisterConstraintCallback(func(reason string, severity int) {
		if reason == ReasonLowMemory && severity == LowMemorySeverity {
			lowMemory.Add(1)
		}
	}))

	cfg := config.DefaultWatchdogConfig()
	cfg.Mode = config.WatchdogHeap
	cfg.Limit = config.ByteSize(1 << 30)
	cfg.CheckInterval = 0
	w := NewMemoryWatchdog(m, cfg, 100)

	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool {
		runtime.GC()
		return w.Checks() > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return lowMemory.Load() > 0 }, time.Second, 10*time.Millisecond)

	w.Stop()
	// 等待已在途的 GC 通知送达
	time.Sleep(50 * time.Millisecond)
	before := w.Checks()

	runtime.GC()
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, w.Checks(), "停止后 GC 不再触发检查")

	t.Log("✅ 堆模式看门狗在 GC 后检查低内存")
}

// TestMemoryWatchdog_SystemDriven 测试系统模式启动与停止
func TestMemoryWatchdog_SystemDriven(t *testing.T) {
	m, _ := newTestManager(t, testLifecycleConfig())

	cfg := config.DefaultWatchdogConfig()
	cfg.Mode = config.WatchdogSystem
	cfg.Frequency = config.Duration(50 * time.Millisecond)
	cfg.CheckInterval = 0
	w := NewMemoryWatchdog(m, cfg, 0)

	require.NoError(t, w.Start())
	require.NoError(t, w.Start(), "重复启动为空操作")

	require.Eventually(t, func() bool {
		runtime.GC()
		return w.Checks() > 0
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()
	assert.NotPanics(t, w.Stop)
}

// TestModule_Provides 测试模块提供管理器并在停止时关闭进程
func TestModule_Provides(t *testing.T) {
	var lm interfaces.LifecycleManager
	ctl := newFakeController()
	ctl.exitAfter = 1

	cfg := config.NewConfig()
	cfg.Lifecycle.PollInterval = config.Duration(time.Millisecond)

	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(
			fx.Annotate(func() Option { return WithController(ctl) }, fx.ResultTags(`group:"lifecycle_options"`)),
			fx.Annotate(func() Option { return WithMemoryReader(&fakeMemory{available: 1 << 30}) }, fx.ResultTags(`group:"lifecycle_options"`)),
		),
		Module(),
		fx.Populate(&lm),
	)
	app.RequireStart()

	require.NotNil(t, lm)
	require.NoError(t, lm.RegisterProcess(77, types.PriorityLow))

	app.RequireStop()
	terms, _, _, _ := ctl.counts()
	assert.Equal(t, 1, terms)
}
