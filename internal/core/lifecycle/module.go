package lifecycle

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
)

// Params 生命周期管理器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Options    []Option       `group:"lifecycle_options"`
}

// ModuleOutput 生命周期模块输出
type ModuleOutput struct {
	fx.Out

	Manager   *Manager
	ManagerIf interfaces.LifecycleManager
	Watchdog  *MemoryWatchdog
}

// ProvideManager 提供生命周期管理器与内存看门狗
func ProvideManager(p Params) (ModuleOutput, error) {
	cfg := config.NewConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg
	}

	m, err := New(cfg.Lifecycle, p.Options...)
	if err != nil {
		return ModuleOutput{}, err
	}
	w := NewMemoryWatchdog(m, cfg.Watchdog, cfg.Lifecycle.LowMemoryThresholdMB)
	return ModuleOutput{Manager: m, ManagerIf: m, Watchdog: w}, nil
}

// Module 返回 Fx 模块
//
// 启动时按配置启动内存看门狗；停止时先停看门狗，
// 再关闭所有活跃的受管进程。
func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(ProvideManager),
		fx.Invoke(registerLifecycleHooks),
	)
}

// lifecycleHooksParams 生命周期钩子参数
type lifecycleHooksParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *Manager
	Watchdog  *MemoryWatchdog
}

// registerLifecycleHooks 注册生命周期钩子
func registerLifecycleHooks(p lifecycleHooksParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return p.Watchdog.Start()
		},
		OnStop: func(_ context.Context) error {
			p.Watchdog.Stop()
			return p.Manager.Close()
		},
	})
}
