package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "pool": {"max_connections": 8, "flush_timeout": "10ms"},
//	  "capacity": {"mtu": 1400, "memory_budget": "16MiB"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为带缩进的 JSON
func ToJSON(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// FromYAML 从 YAML 数据创建配置
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置，按扩展名选择 JSON 或 YAML
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json", "":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "mobile": 通用移动端（启用看门狗、较小分配预热）
//   - "android": Android 默认容量
//   - "ios": iOS Network Extension 内存上限
//   - "desktop": 默认配置
//   - "lowmem": 最小内存占用
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return ErrNilConfig
	}

	switch presetName {
	case "mobile":
		applyMobilePreset(cfg)
	case "android":
		applyMobilePreset(cfg)
		cfg.Capacity.MTU = 1500
		cfg.Capacity.MaxConnections = 512
		cfg.Capacity.BufferPackets = 32
		cfg.Capacity.MemoryBudget = 16 << 20
	case "ios":
		applyMobilePreset(cfg)
		cfg.Capacity.MTU = 1400
		cfg.Capacity.MaxConnections = 256
		cfg.Capacity.BufferPackets = 16
		cfg.Capacity.MemoryBudget = 8 << 20
		cfg.Watchdog.Limit = 48 << 20 // Network Extension 约 50MB
	case "desktop", "":
		// 使用默认配置
	case "lowmem":
		applyLowMemoryPreset(cfg)
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// applyMobilePreset 应用移动端预设
//
// 移动端配置优化：
//   - 启用堆驱动看门狗，GC 后检查低内存
//   - 关闭时更快放弃子进程
func applyMobilePreset(cfg *Config) {
	cfg.Watchdog.Mode = WatchdogHeap
	cfg.Watchdog.CheckInterval = Duration(2 * time.Second)
	cfg.Lifecycle.CloseTimeout = Duration(3 * time.Second)
	cfg.Allocator.Prealloc = 32
}

// applyLowMemoryPreset 应用最小内存预设
func applyLowMemoryPreset(cfg *Config) {
	applyMobilePreset(cfg)
	cfg.Capacity.MaxConnections = 32
	cfg.Capacity.BufferPackets = 8
	cfg.Capacity.MemoryBudget = 4 << 20
	cfg.Allocator.Prealloc = 0
	cfg.Lifecycle.LowMemoryThresholdMB = 150
	cfg.Lifecycle.HistorySize = 16
}

// CloneConfig 克隆配置
//
// 创建配置的深拷贝，切片字段单独复制。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	cloned := *cfg
	cloned.Watchdog.Watermarks = append([]float64(nil), cfg.Watchdog.Watermarks...)
	cloned.Signal.InitialMask = append([]int(nil), cfg.Signal.InitialMask...)
	return &cloned
}
