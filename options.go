package mobiletun

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（三选一，后设置的覆盖先设置的）
	config     *config.Config
	configFile string

	// 预设，应用在基础配置之上
	preset string

	// 不透明传输
	transport  interfaces.Transport
	pluginPath string

	// 日志
	sink     log.Sink
	logLevel string

	// 回调，启动前注册
	stateCallbacks      []interfaces.StateCallback
	constraintCallbacks []interfaces.ConstraintCallback

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// resolveConfig 按 基础配置 → 预设 → 单项覆盖 的顺序得到最终配置
func (o *options) resolveConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case o.config != nil:
		cfg = config.CloneConfig(o.config)
	case o.configFile != "":
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		cfg = config.NewConfig()
	}

	if o.preset != "" {
		if err := config.ApplyPreset(cfg, o.preset); err != nil {
			return nil, err
		}
	}

	if o.pluginPath != "" {
		cfg.Pool.PluginPath = o.pluginPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用给定配置（内部会复制一份）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidOption)
		}
		o.config = cfg
		o.configFile = ""
		return nil
	}
}

// WithConfigFile 从 JSON/YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("%w: empty config path", ErrInvalidOption)
		}
		o.configFile = path
		o.config = nil
		return nil
	}
}

// WithPreset 应用预设
//
// 支持 PresetMobile、PresetAndroid、PresetIOS、PresetDesktop、PresetLowMemory。
func WithPreset(name string) Option {
	return func(o *options) error {
		if err := config.ApplyPreset(config.NewConfig(), name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
		o.preset = name
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              传输选项
// ════════════════════════════════════════════════════════════════════════════

// WithTransport 注入不透明传输
//
// 注入后忽略配置中的插件路径。
func WithTransport(t interfaces.Transport) Option {
	return func(o *options) error {
		if t == nil {
			return fmt.Errorf("%w: nil transport", ErrInvalidOption)
		}
		o.transport = t
		return nil
	}
}

// WithPlugin 从 Go 插件解析传输入口
func WithPlugin(path string) Option {
	return func(o *options) error {
		o.pluginPath = path
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              日志与回调选项
// ════════════════════════════════════════════════════════════════════════════

// WithLogSink 把所有日志转发到宿主
func WithLogSink(sink log.Sink) Option {
	return func(o *options) error {
		o.sink = sink
		return nil
	}
}

// WithLogLevel 覆盖日志级别
func WithLogLevel(level string) Option {
	return func(o *options) error {
		if _, ok := log.ParseLevel(level); !ok {
			return fmt.Errorf("%w: unknown log level %q", ErrInvalidOption, level)
		}
		o.logLevel = level
		return nil
	}
}

// WithStateCallback 注册后台状态回调
func WithStateCallback(cb interfaces.StateCallback) Option {
	return func(o *options) error {
		if cb == nil {
			return fmt.Errorf("%w: nil state callback", ErrInvalidOption)
		}
		o.stateCallbacks = append(o.stateCallbacks, cb)
		return nil
	}
}

// WithConstraintCallback 注册资源约束回调
func WithConstraintCallback(cb interfaces.ConstraintCallback) Option {
	return func(o *options) error {
		if cb == nil {
			return fmt.Errorf("%w: nil constraint callback", ErrInvalidOption)
		}
		o.constraintCallbacks = append(o.constraintCallbacks, cb)
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
//
// 用于替换内部实现（例如通过 lifecycle_options 分组注入进程控制器）。
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
