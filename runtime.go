package mobiletun

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/internal/core/allocator"
	"github.com/dep2p/go-mobiletun/internal/core/lifecycle"
	"github.com/dep2p/go-mobiletun/internal/core/sigdispatch"
	"github.com/dep2p/go-mobiletun/internal/core/transportpool"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var logger = log.Logger("mobiletun")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// startTimeout Fx App 启动超时
	startTimeout = 15 * time.Second

	// stopTimeout Fx App 停止超时，需覆盖受管进程的优雅关闭
	stopTimeout = 30 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Runtime
// ════════════════════════════════════════════════════════════════════════════

// Runtime 运行时门面
//
// 持有所有组件实例。New 完成组件构造，Start 启动内存看门狗等后台任务，
// Close 刷新批次、关闭受管进程、恢复信号处理并释放分配器。
type Runtime struct {
	mu     sync.Mutex
	cfg    *config.Config
	app    *fx.App
	state  RuntimeState
	closed bool

	plan      types.CapacityPlan
	allocator *allocator.Allocator
	transport *transportpool.Batcher
	lifecycle *lifecycle.Manager
	watchdog  *lifecycle.MemoryWatchdog
	signals   *sigdispatch.Dispatcher
	registry  *prometheus.Registry
}

// New 创建运行时
//
// 应用选项、校验配置、应用日志配置并构造所有组件。
// 返回的 Runtime 必须调用 Close，即使从未调用 Start。
func New(opts ...Option) (*Runtime, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := applyLogConfig(cfg.Log, o.sink); err != nil {
		return nil, err
	}

	rt := &Runtime{cfg: cfg, state: StateIdle}
	rt.app = buildFxApp(cfg, o, rt)
	if err := rt.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	logger.Info("运行时已创建",
		"mtu", rt.plan.MTU,
		"connections", rt.plan.EffectiveMaxConnections,
		"transportAvailable", rt.transport.Available())
	return rt, nil
}

// Start 快捷启动函数
//
// 等价于 New() + Start()。
func Start(ctx context.Context, opts ...Option) (*Runtime, error) {
	rt, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := rt.Start(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("start runtime: %w", err)
	}
	return rt, nil
}

// Start 启动运行时
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	if r.state == StateRunning {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := r.app.Start(startCtx); err != nil {
		logger.Error("运行时启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}
	r.state = StateRunning
	logger.Info("运行时已启动")
	return nil
}

// Close 关闭运行时
//
// 可重复调用。已启动时按 Fx 停止顺序关闭各组件；未启动时直接释放
// 构造阶段创建的资源。
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.state != StateRunning {
		r.state = StateStopped
		return r.teardownUnstarted()
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	err := r.app.Stop(ctx)
	r.state = StateStopped
	if err != nil {
		logger.Warn("运行时停止出错", "error", err)
		return fmt.Errorf("stop failed: %w", err)
	}
	logger.Info("运行时已关闭")
	return nil
}

// teardownUnstarted 释放未启动运行时的资源
func (r *Runtime) teardownUnstarted() error {
	var errs error
	if r.signals != nil {
		errs = multierr.Append(errs, r.signals.Close())
	}
	if r.lifecycle != nil {
		errs = multierr.Append(errs, r.lifecycle.Close())
	}
	if r.allocator != nil {
		r.allocator.DrainAll()
	}
	return errs
}

// State 返回运行时状态
func (r *Runtime) State() RuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Config 返回生效配置的副本
func (r *Runtime) Config() *config.Config {
	return config.CloneConfig(r.cfg)
}

// Plan 返回启动时的容量规划
func (r *Runtime) Plan() types.CapacityPlan {
	return r.plan
}

// Allocator 返回块分配器
func (r *Runtime) Allocator() interfaces.Allocator {
	return r.allocator
}

// Transport 返回带连接池与批量发送的传输
func (r *Runtime) Transport() interfaces.PooledTransport {
	return r.transport
}

// Lifecycle 返回后台进程生命周期管理器
func (r *Runtime) Lifecycle() interfaces.LifecycleManager {
	return r.lifecycle
}

// Signals 返回信号分发器
func (r *Runtime) Signals() interfaces.SignalDispatcher {
	return r.signals
}

// Registry 返回 Prometheus 注册表
func (r *Runtime) Registry() *prometheus.Registry {
	return r.registry
}

// Snapshot 返回各组件的统计快照
func (r *Runtime) Snapshot() Snapshot {
	return Snapshot{
		State:              r.State().String(),
		Plan:               r.plan,
		Allocator:          r.allocator.StatsSnapshot(),
		FreeBlocks:         r.allocator.FreeCount(),
		Pool:               r.transport.Stats(),
		TransportAvailable: r.transport.Available(),
		Background:         r.lifecycle.State().String(),
		ActiveProcesses:    r.lifecycle.ActiveProcessCount(),
		WatchdogChecks:     r.watchdog.Checks(),
	}
}

// applyLogConfig 应用日志配置
//
// 提供 sink 时所有日志转发到宿主；否则按格式与级别输出到 stderr。
func applyLogConfig(cfg config.LogConfig, sink log.Sink) error {
	if sink != nil {
		return log.SetSink(sink, cfg.Level)
	}
	lvl, ok := log.ParseLevel(cfg.Level)
	if !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidOption, cfg.Level)
	}
	log.Setup(cfg.Format, lvl)
	return nil
}
