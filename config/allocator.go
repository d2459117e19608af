package config

import "errors"

// AllocatorConfig 块分配器配置
type AllocatorConfig struct {
	// BlockSize 块大小（字节），0 表示使用容量规划得到的 MTU
	BlockSize int `json:"block_size" yaml:"block_size"`

	// EnableStats 启用命中/未命中与锁等待统计
	EnableStats bool `json:"enable_stats" yaml:"enable_stats"`

	// Prealloc 初始化时预分配到空闲链表的块数
	Prealloc int `json:"prealloc" yaml:"prealloc"`
}

// DefaultAllocatorConfig 返回默认分配器配置
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		BlockSize:   0,
		EnableStats: true,
		Prealloc:    platformPreallocBlocks,
	}
}

// Validate 验证分配器配置
func (c AllocatorConfig) Validate() error {
	if c.BlockSize < 0 {
		return errors.New("block size must be non-negative")
	}
	if c.Prealloc < 0 {
		return errors.New("prealloc must be non-negative")
	}
	return nil
}
