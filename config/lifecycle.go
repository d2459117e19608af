package config

import (
	"errors"
	"fmt"
	"time"
)

// 生命周期表的固定容量上限
const (
	// ProcessTableCapacity 进程表最大容量
	ProcessTableCapacity = 64

	// CallbackTableCapacity 每类回调表最大容量
	CallbackTableCapacity = 8
)

// LifecycleConfig 后台进程生命周期配置
type LifecycleConfig struct {
	// MaxProcesses 进程表容量
	MaxProcesses int `json:"max_processes" yaml:"max_processes"`

	// MaxCallbacks 每类回调表容量
	MaxCallbacks int `json:"max_callbacks" yaml:"max_callbacks"`

	// PollInterval 优雅关闭时的退出轮询间隔
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval"`

	// LowMemoryThresholdMB 低内存阈值（MB）
	LowMemoryThresholdMB uint64 `json:"low_memory_threshold_mb" yaml:"low_memory_threshold_mb"`

	// CloseTimeout 管理器关闭时每个受管进程的优雅关闭超时
	CloseTimeout Duration `json:"close_timeout" yaml:"close_timeout"`

	// CloseConcurrency 管理器关闭时并发关闭的进程数
	CloseConcurrency int `json:"close_concurrency" yaml:"close_concurrency"`

	// HistorySize 保留的关闭记录条数
	HistorySize int `json:"history_size" yaml:"history_size"`
}

// DefaultLifecycleConfig 返回默认生命周期配置
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		MaxProcesses:         ProcessTableCapacity,
		MaxCallbacks:         CallbackTableCapacity,
		PollInterval:         Duration(100 * time.Millisecond),
		LowMemoryThresholdMB: 100,
		CloseTimeout:         Duration(5 * time.Second),
		CloseConcurrency:     4,
		HistorySize:          64,
	}
}

// Validate 验证生命周期配置
func (c LifecycleConfig) Validate() error {
	if c.MaxProcesses <= 0 || c.MaxProcesses > ProcessTableCapacity {
		return fmt.Errorf("max processes must be within [1, %d], got %d", ProcessTableCapacity, c.MaxProcesses)
	}
	if c.MaxCallbacks <= 0 || c.MaxCallbacks > CallbackTableCapacity {
		return fmt.Errorf("max callbacks must be within [1, %d], got %d", CallbackTableCapacity, c.MaxCallbacks)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.CloseTimeout < 0 {
		return errors.New("close timeout must be non-negative")
	}
	if c.CloseConcurrency <= 0 {
		return errors.New("close concurrency must be positive")
	}
	if c.HistorySize <= 0 {
		return errors.New("history size must be positive")
	}
	return nil
}
