package config

import (
	"errors"
	"fmt"
	"time"
)

// PoolCapacity 连接池最多跟踪的连接数
const PoolCapacity = 8

// PoolConfig 传输连接池与批量发送配置
type PoolConfig struct {
	// MaxConnections 池中最多跟踪的连接数，超出后直连不入池
	MaxConnections int `json:"max_connections" yaml:"max_connections"`

	// BatchSize 每连接批次的最大条目数
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// FlushTimeout 距上次刷新超过该时长时，下一次 Send 先刷新
	FlushTimeout Duration `json:"flush_timeout" yaml:"flush_timeout"`

	// MaxEntryBytes 单条批次负载上限，超出则直接发送
	MaxEntryBytes int `json:"max_entry_bytes" yaml:"max_entry_bytes"`

	// EvictOnClose 关闭时移除池条目，而不是标记为空闲
	EvictOnClose bool `json:"evict_on_close" yaml:"evict_on_close"`

	// PluginPath 不透明传输插件路径（为空时需通过选项注入入口）
	PluginPath string `json:"plugin_path,omitempty" yaml:"plugin_path,omitempty"`

	// Symbols 入口符号名
	Symbols SymbolNames `json:"symbols" yaml:"symbols"`
}

// SymbolNames 不透明传输的四个入口符号名
type SymbolNames struct {
	Connect string `json:"connect" yaml:"connect"`
	Send    string `json:"send" yaml:"send"`
	Receive string `json:"receive" yaml:"receive"`
	Close   string `json:"close" yaml:"close"`
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections: PoolCapacity,                    // 最多 8 个池化连接
		BatchSize:      16,                              // 每批 16 条
		FlushTimeout:   Duration(10 * time.Millisecond), // 10ms 刷新超时
		MaxEntryBytes:  8192,                            // 单条 8KB
		EvictOnClose:   false,
		Symbols: SymbolNames{
			Connect: "Connect",
			Send:    "Send",
			Receive: "Receive",
			Close:   "Close",
		},
	}
}

// Validate 验证连接池配置
func (c PoolConfig) Validate() error {
	if c.MaxConnections <= 0 || c.MaxConnections > PoolCapacity {
		return fmt.Errorf("max connections must be within [1, %d], got %d", PoolCapacity, c.MaxConnections)
	}
	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if c.FlushTimeout <= 0 {
		return errors.New("flush timeout must be positive")
	}
	if c.MaxEntryBytes <= 0 {
		return errors.New("max entry bytes must be positive")
	}
	if c.Symbols.Connect == "" || c.Symbols.Send == "" || c.Symbols.Receive == "" || c.Symbols.Close == "" {
		return errors.New("all entry point symbol names must be set")
	}
	return nil
}
