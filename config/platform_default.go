//go:build !android && !ios

package config

const (
	platformMTU            = 1500
	platformMaxConnections = 1024
	platformBufferPackets  = 64
	platformMemoryBudget   = ByteSize(16 << 20)
	platformPreallocBlocks = 0
)
