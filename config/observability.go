package config

import (
	"errors"
	"fmt"
	"strings"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enable 启用指标采集
	Enable bool `json:"enable" yaml:"enable"`

	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    true,
		Namespace: "mobiletun",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enable && c.Namespace == "" {
		return errors.New("namespace must be set when metrics are enabled")
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug/info/warn/error
	Level string `json:"level" yaml:"level"`

	// Format text/json
	Format string `json:"format" yaml:"format"`

	// FxEvents 输出依赖注入事件日志
	FxEvents bool `json:"fx_events" yaml:"fx_events"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}
