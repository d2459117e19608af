package config

import "fmt"

// SignalTableCapacity 信号分发表容量
const SignalTableCapacity = 32

// SignalConfig 信号分发配置
type SignalConfig struct {
	// Enable 启用信号分发器
	Enable bool `json:"enable" yaml:"enable"`

	// MaxRegistrations 分发表容量（同时也是可注册信号编号的上界）
	MaxRegistrations int `json:"max_registrations" yaml:"max_registrations"`

	// InitialMask 初始化时即处于屏蔽状态的信号编号，UnblockAll 恢复到此集合
	InitialMask []int `json:"initial_mask,omitempty" yaml:"initial_mask,omitempty"`
}

// DefaultSignalConfig 返回默认信号分发配置
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		Enable:           true,
		MaxRegistrations: SignalTableCapacity,
	}
}

// Validate 验证信号分发配置
func (c SignalConfig) Validate() error {
	if c.MaxRegistrations <= 0 || c.MaxRegistrations > SignalTableCapacity {
		return fmt.Errorf("max registrations must be within [1, %d], got %d", SignalTableCapacity, c.MaxRegistrations)
	}
	for _, sig := range c.InitialMask {
		if sig <= 0 || sig >= c.MaxRegistrations {
			return fmt.Errorf("initial mask signal %d out of range", sig)
		}
	}
	return nil
}
