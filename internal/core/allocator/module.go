package allocator

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// Params 分配器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config     `optional:"true"`
	Plan       types.CapacityPlan `optional:"true"`
}

// ModuleOutput 分配器模块输出
type ModuleOutput struct {
	fx.Out

	Allocator   *Allocator
	AllocatorIf interfaces.Allocator
}

// ConfigFromUnified 从统一配置创建分配器配置
//
// BlockSize 为 0 时使用容量规划得到的 MTU。
func ConfigFromUnified(cfg *config.Config, plan types.CapacityPlan) config.AllocatorConfig {
	out := config.DefaultAllocatorConfig()
	if cfg != nil {
		out = cfg.Allocator
	}
	if out.BlockSize == 0 && plan.MTU > 0 {
		out.BlockSize = plan.MTU
	}
	return out
}

// ProvideAllocator 提供分配器实例
func ProvideAllocator(p Params) (ModuleOutput, error) {
	a, err := New(ConfigFromUnified(p.UnifiedCfg, p.Plan))
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Allocator: a, AllocatorIf: a}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("allocator",
		fx.Provide(ProvideAllocator),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, a *Allocator) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			stats := a.StatsSnapshot()
			logger.Info("分配器关闭",
				"hits", stats.PoolHits,
				"misses", stats.PoolMisses,
				"hitRatio", stats.HitRatio(),
				"lockWaitNs", stats.LockWaitNs)
			a.DrainAll()
			return nil
		},
	})
}
