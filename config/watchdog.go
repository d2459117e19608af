package config

import (
	"fmt"
	"sort"
	"time"
)

// 看门狗模式
const (
	WatchdogOff    = "off"
	WatchdogHeap   = "heap"
	WatchdogSystem = "system"
)

// WatchdogConfig 内存看门狗配置
//
// 启用后每次 GC 完成都会（限速地）检查一次低内存，
// 低于阈值时触发约束回调。
type WatchdogConfig struct {
	// Mode off/heap/system
	Mode string `json:"mode" yaml:"mode"`

	// Limit 内存上限，0 表示使用系统总内存
	Limit ByteSize `json:"limit" yaml:"limit"`

	// MinGOGC heap 模式下 GOGC 的下限
	MinGOGC int `json:"min_gogc" yaml:"min_gogc"`

	// Frequency system 模式下的采样频率
	Frequency Duration `json:"frequency" yaml:"frequency"`

	// Watermarks 触发强制 GC 的水位（上限的比例，升序）
	Watermarks []float64 `json:"watermarks" yaml:"watermarks"`

	// CheckInterval 两次低内存检查的最小间隔
	CheckInterval Duration `json:"check_interval" yaml:"check_interval"`
}

// DefaultWatchdogConfig 返回默认看门狗配置（默认关闭）
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Mode:          WatchdogOff,
		Limit:         0,
		MinGOGC:       25,
		Frequency:     Duration(5 * time.Second),
		Watermarks:    []float64{0.50, 0.75, 0.90, 0.95},
		CheckInterval: Duration(time.Second),
	}
}

// Enabled 是否启用看门狗
func (c WatchdogConfig) Enabled() bool {
	return c.Mode == WatchdogHeap || c.Mode == WatchdogSystem
}

// Validate 验证看门狗配置
func (c WatchdogConfig) Validate() error {
	switch c.Mode {
	case WatchdogOff, "":
		return nil
	case WatchdogHeap, WatchdogSystem:
	default:
		return fmt.Errorf("unknown watchdog mode %q", c.Mode)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if len(c.Watermarks) == 0 {
		return fmt.Errorf("at least one watermark is required")
	}
	if !sort.Float64sAreSorted(c.Watermarks) {
		return fmt.Errorf("watermarks must be ascending")
	}
	for _, w := range c.Watermarks {
		if w <= 0 || w > 1 {
			return fmt.Errorf("watermark %v out of range (0, 1]", w)
		}
	}
	if c.Mode == WatchdogSystem && c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive in system mode")
	}
	if c.CheckInterval < 0 {
		return fmt.Errorf("check interval must be non-negative")
	}
	return nil
}
