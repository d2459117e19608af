package config

import "errors"

// CapacityConfig 容量规划请求配置
//
// 值可以越界，稳定器会钳制到安全范围；这里只拒绝明显错误的输入。
type CapacityConfig struct {
	// MTU 隧道 MTU
	MTU int `json:"mtu" yaml:"mtu"`

	// MaxConnections 请求的最大连接数
	MaxConnections int `json:"max_connections" yaml:"max_connections"`

	// BufferPackets 请求的每连接缓冲包数
	BufferPackets int `json:"buffer_packets" yaml:"buffer_packets"`

	// MemoryBudget 内存预算，0 表示默认值或自动预算
	MemoryBudget ByteSize `json:"memory_budget" yaml:"memory_budget"`

	// AutoBudgetFraction 大于 0 且 MemoryBudget 为 0 时，
	// 预算取系统总内存的该比例
	AutoBudgetFraction float64 `json:"auto_budget_fraction" yaml:"auto_budget_fraction"`
}

// DefaultCapacityConfig 返回默认容量规划配置（随平台变化）
func DefaultCapacityConfig() CapacityConfig {
	return CapacityConfig{
		MTU:                platformMTU,
		MaxConnections:     platformMaxConnections,
		BufferPackets:      platformBufferPackets,
		MemoryBudget:       platformMemoryBudget,
		AutoBudgetFraction: 0,
	}
}

// Validate 验证容量规划配置
func (c CapacityConfig) Validate() error {
	if c.MemoryBudget < 0 {
		return errors.New("memory budget must be non-negative")
	}
	if c.AutoBudgetFraction < 0 || c.AutoBudgetFraction > 1 {
		return errors.New("auto budget fraction must be within [0, 1]")
	}
	return nil
}
