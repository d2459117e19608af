package mobiletun

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/internal/core/allocator"
	"github.com/dep2p/go-mobiletun/internal/core/capacity"
	"github.com/dep2p/go-mobiletun/internal/core/lifecycle"
	"github.com/dep2p/go-mobiletun/internal/core/metrics"
	"github.com/dep2p/go-mobiletun/internal/core/sigdispatch"
	"github.com/dep2p/go-mobiletun/internal/core/transportpool"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var fxLogger = log.Logger("mobiletun/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. capacity: 启动时的容量规划
//  2. allocator: 块大小默认取规划 MTU
//  3. transportpool: 注入的传输或插件入口
//  4. lifecycle: 管理器与内存看门狗
//  5. sigdispatch: 信号分发表
//  6. metrics: 采集以上组件的统计
func buildFxApp(cfg *config.Config, o *options, rt *Runtime) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),

		capacity.Module(),
		allocator.Module(),
		transportpool.Module(),
		lifecycle.Module(),
		sigdispatch.Module(),
		metrics.Module(),
	}

	if o.transport != nil {
		t := o.transport
		modules = append(modules, fx.Provide(fx.Annotate(
			func() interfaces.Transport { return t },
			fx.ResultTags(`name:"opaque_transport"`),
		)))
	}

	if len(o.fxOptions) > 0 {
		modules = append(modules, o.fxOptions...)
	}

	modules = append(modules,
		fx.Invoke(registerCallbacks(o)),
		fx.Invoke(injectRuntimeComponents(rt)),
		fxEventLogger(cfg.Log),
	)

	return fx.New(modules...)
}

// fxEventLogger 按配置输出或屏蔽 Fx 事件
func fxEventLogger(cfg config.LogConfig) fx.Option {
	if !cfg.FxEvents {
		return fx.NopLogger
	}
	return fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Zap().Named("fx")}
	})
}

// registerCallbacks 在组件构造完成后注册用户回调
func registerCallbacks(o *options) func(m *lifecycle.Manager) error {
	return func(m *lifecycle.Manager) error {
		for _, cb := range o.stateCallbacks {
			if err := m.RegisterStateCallback(cb); err != nil {
				return err
			}
		}
		for _, cb := range o.constraintCallbacks {
			if err := m.RegisterConstraintCallback(cb); err != nil {
				return err
			}
		}
		if n := len(o.stateCallbacks) + len(o.constraintCallbacks); n > 0 {
			fxLogger.Debug("用户回调已注册", "count", n)
		}
		return nil
	}
}

// runtimeInjectParams Runtime 组件注入参数
type runtimeInjectParams struct {
	fx.In

	Plan       types.CapacityPlan
	Allocator  *allocator.Allocator
	Transport  *transportpool.Batcher
	Lifecycle  *lifecycle.Manager
	Watchdog   *lifecycle.MemoryWatchdog
	Dispatcher *sigdispatch.Dispatcher
	Registry   *prometheus.Registry
}

// injectRuntimeComponents 创建 Runtime 组件注入函数
func injectRuntimeComponents(rt *Runtime) func(p runtimeInjectParams) {
	return func(p runtimeInjectParams) {
		rt.plan = p.Plan
		rt.allocator = p.Allocator
		rt.transport = p.Transport
		rt.lifecycle = p.Lifecycle
		rt.watchdog = p.Watchdog
		rt.signals = p.Dispatcher
		rt.registry = p.Registry
	}
}
