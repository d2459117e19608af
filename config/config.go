// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON/YAML 加载和保存配置
//   - 支持预设配置（mobile/android/ios/desktop/lowmem）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Pool.EvictOnClose = true
//
//	// 应用预设到现有配置
//	config.ApplyPreset(cfg, "lowmem")
//
//	// 从文件加载
//	cfg, err := config.LoadFile("mobiletun.yaml")
package config

// Config 是 mobiletun 的完整配置结构
//
// 配置按照功能模块组织：
//   - Pool: 传输连接池与批量发送
//   - Allocator: 块分配器
//   - Capacity: 容量规划请求
//   - Lifecycle: 后台进程生命周期
//   - Watchdog: 内存看门狗
//   - Signal: 信号分发
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Pool 连接池配置
	Pool PoolConfig `json:"pool" yaml:"pool"`

	// Allocator 块分配器配置
	Allocator AllocatorConfig `json:"allocator" yaml:"allocator"`

	// Capacity 容量规划配置
	Capacity CapacityConfig `json:"capacity" yaml:"capacity"`

	// Lifecycle 生命周期管理配置
	Lifecycle LifecycleConfig `json:"lifecycle" yaml:"lifecycle"`

	// Watchdog 内存看门狗配置
	Watchdog WatchdogConfig `json:"watchdog" yaml:"watchdog"`

	// Signal 信号分发配置
	Signal SignalConfig `json:"signal" yaml:"signal"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，容量规划默认值随目标平台变化。
func NewConfig() *Config {
	return &Config{
		Pool:      DefaultPoolConfig(),
		Allocator: DefaultAllocatorConfig(),
		Capacity:  DefaultCapacityConfig(),
		Lifecycle: DefaultLifecycleConfig(),
		Watchdog:  DefaultWatchdogConfig(),
		Signal:    DefaultSignalConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置，返回所有发现的问题（multierr 合并）。
// 建议在使用配置前调用此方法。
func (c *Config) Validate() error {
	return validateSections(
		section{"pool", c.Pool.Validate},
		section{"allocator", c.Allocator.Validate},
		section{"capacity", c.Capacity.Validate},
		section{"lifecycle", c.Lifecycle.Validate},
		section{"watchdog", c.Watchdog.Validate},
		section{"signal", c.Signal.Validate},
		section{"metrics", c.Metrics.Validate},
		section{"log", c.Log.Validate},
	)
}
