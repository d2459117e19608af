package sigdispatch

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
)

// Params 信号分发器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ModuleOutput 信号分发器模块输出
type ModuleOutput struct {
	fx.Out

	Dispatcher   *Dispatcher
	DispatcherIf interfaces.SignalDispatcher
}

// ConfigFromUnified 从统一配置创建信号分发配置
func ConfigFromUnified(cfg *config.Config) config.SignalConfig {
	if cfg == nil {
		return config.DefaultSignalConfig()
	}
	return cfg.Signal
}

// ProvideDispatcher 提供信号分发器实例
func ProvideDispatcher(p Params) ModuleOutput {
	d := New(ConfigFromUnified(p.UnifiedCfg))
	return ModuleOutput{Dispatcher: d, DispatcherIf: d}
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("sigdispatch",
		fx.Provide(ProvideDispatcher),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return d.Close()
		},
	})
}
