package capacity

import (
	"github.com/pbnjay/memory"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// totalMemory 可在测试中替换
var totalMemory = memory.TotalMemory

// AutoBudget 按系统总内存的比例计算内存预算
//
// 无法获取总内存或比例非法时返回 0，交由 Stabilize 使用默认预算。
// 结果会被 Stabilize 钳制到 [4MiB, 128MiB]。
func AutoBudget(fraction float64) int64 {
	if fraction <= 0 || fraction > 1 {
		return 0
	}
	total := totalMemory()
	if total == 0 {
		return 0
	}
	return int64(float64(total) * fraction)
}

// RequestFromConfig 从配置构造容量规划请求
func RequestFromConfig(cfg config.CapacityConfig) types.CapacityRequest {
	budget := cfg.MemoryBudget.Bytes()
	if budget == 0 && cfg.AutoBudgetFraction > 0 {
		budget = AutoBudget(cfg.AutoBudgetFraction)
	}
	return types.CapacityRequest{
		MTU:               cfg.MTU,
		MaxConnections:    cfg.MaxConnections,
		BufferPackets:     cfg.BufferPackets,
		MemoryBudgetBytes: budget,
	}
}
