package transportpool

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
)

// Params 批量器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Underlying interfaces.Transport `name:"opaque_transport" optional:"true"`
}

// ModuleOutput 批量器模块输出
type ModuleOutput struct {
	fx.Out

	Batcher *Batcher
	Pooled  interfaces.PooledTransport
}

// ConfigFromUnified 从统一配置创建连接池配置
func ConfigFromUnified(cfg *config.Config) config.PoolConfig {
	if cfg == nil {
		return config.DefaultPoolConfig()
	}
	return cfg.Pool
}

// ResolveUnderlying 选择底层传输
//
// 优先使用注入的 Transport，其次加载配置的插件。两者都没有，或插件
// 入口不完整时，返回失败关闭的 EntryPoints，不会使启动失败。
func ResolveUnderlying(injected interfaces.Transport, cfg config.PoolConfig) interfaces.Transport {
	if injected != nil {
		return injected
	}
	if cfg.PluginPath == "" {
		logger.Warn("未配置不透明传输，所有调用将失败关闭")
		return EntryPoints{}
	}

	ep, err := OpenPlugin(cfg.PluginPath, cfg.Symbols)
	if err != nil {
		logger.Warn("加载传输插件失败", "path", cfg.PluginPath, "err", err)
		return ep
	}
	logger.Info("传输插件已加载", "path", cfg.PluginPath)
	return ep
}

// ProvideBatcher 提供批量器实例
func ProvideBatcher(p Params) ModuleOutput {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	b := New(ResolveUnderlying(p.Underlying, cfg), cfg)
	return ModuleOutput{Batcher: b, Pooled: b}
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transportpool",
		fx.Provide(ProvideBatcher),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, b *Batcher) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if failed := b.FlushAll(); failed > 0 {
				logger.Warn("停止时部分批次刷新失败", "connections", failed)
			}
			return nil
		},
	})
}
