//go:build android

package config

// Android 设备内存较紧，缩小默认连接扇出
const (
	platformMTU            = 1500
	platformMaxConnections = 512
	platformBufferPackets  = 32
	platformMemoryBudget   = ByteSize(16 << 20)
	platformPreallocBlocks = 64
)
