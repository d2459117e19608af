// Package capacity 实现容量规划
//
// Stabilize 是纯函数：根据 MTU、请求的连接数/缓冲包数和内存预算，
// 推导出不超出预算的连接与缓冲配置。没有共享状态，可并发调用。
//
// 预算不足时先收缩连接数，再收缩缓冲深度：保留每连接的响应能力，
// 牺牲总连接扇出。
package capacity

import "github.com/dep2p/go-mobiletun/pkg/types"

// 钳制范围
const (
	MinConnections   = 32
	MaxConnections   = 2048
	MinBufferPackets = 8
	MaxBufferPackets = 96
	MinMTU           = 576
	MaxMTU           = 65535

	DefaultMemoryBudget int64 = 16 << 20
	MinMemoryBudget     int64 = 4 << 20
	MaxMemoryBudget     int64 = 128 << 20

	// MinPacketBudget 包预算下限 = MinConnections × MinBufferPackets
	MinPacketBudget = MinConnections * MinBufferPackets
)

// Stabilize 计算容量规划
func Stabilize(req types.CapacityRequest) types.CapacityPlan {
	plan := types.CapacityPlan{
		RequestedMaxConnections: req.MaxConnections,
		RequestedBufferPackets:  req.BufferPackets,
		MemoryBudgetBytes:       req.MemoryBudgetBytes,
	}

	mtu := clamp(req.MTU, MinMTU, MaxMTU)
	conns := clamp(req.MaxConnections, MinConnections, MaxConnections)
	buffer := clamp(req.BufferPackets, MinBufferPackets, MaxBufferPackets)

	budget := req.MemoryBudgetBytes
	if budget <= 0 {
		budget = DefaultMemoryBudget
	}
	budget = clamp64(budget, MinMemoryBudget, MaxMemoryBudget)

	packets := int(budget / int64(mtu))
	if packets < MinPacketBudget {
		packets = MinPacketBudget
	}

	if conns*buffer > packets {
		conns = min(conns, max(MinConnections, packets/MinBufferPackets))
		buffer = min(buffer, max(MinBufferPackets, packets/conns))
	}

	plan.MTU = mtu
	plan.EffectiveBudgetBytes = budget
	plan.EffectiveMaxConnections = conns
	plan.EffectiveBufferPackets = buffer
	plan.EstimatedBufferBytes = int64(conns) * int64(buffer) * int64(mtu)
	plan.Changed = conns != req.MaxConnections || buffer != req.BufferPackets
	return plan
}

// PacketBudget 返回预算可容纳的总包数（含下限）
func PacketBudget(plan types.CapacityPlan) int {
	if plan.MTU <= 0 {
		return MinPacketBudget
	}
	return max(MinPacketBudget, int(plan.EffectiveBudgetBytes/int64(plan.MTU)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
