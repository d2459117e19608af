//go:build ios

package config

// 适配 iOS Network Extension 的内存上限
const (
	platformMTU            = 1400
	platformMaxConnections = 256
	platformBufferPackets  = 16
	platformMemoryBudget   = ByteSize(8 << 20)
	platformPreallocBlocks = 16
)
