package capacity

import (
	units "github.com/docker/go-units"
	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var logger = log.Logger("core/capacity")

// Params 容量规划依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("capacity",
		fx.Provide(ProvidePlan),
	)
}

// ProvidePlan 根据统一配置计算启动时的容量规划
func ProvidePlan(p Params) types.CapacityPlan {
	cfg := config.DefaultCapacityConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Capacity
	}

	plan := Stabilize(RequestFromConfig(cfg))
	logger.Info("容量规划完成",
		"mtu", plan.MTU,
		"connections", plan.EffectiveMaxConnections,
		"bufferPackets", plan.EffectiveBufferPackets,
		"budget", units.BytesSize(float64(plan.EffectiveBudgetBytes)),
		"estimated", units.BytesSize(float64(plan.EstimatedBufferBytes)),
		"changed", plan.Changed)
	return plan
}
