package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/internal/core/allocator"
	"github.com/dep2p/go-mobiletun/internal/core/lifecycle"
	"github.com/dep2p/go-mobiletun/internal/core/transportpool"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) config.MetricsConfig {
	if cfg == nil {
		return config.DefaultMetricsConfig()
	}
	return cfg.Metrics
}

// NewRegistry 创建注册表并注册运行时与组件采集器
//
// cfg.Enable 为 false 时返回空注册表。
func NewRegistry(cfg config.MetricsConfig, c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if !cfg.Enable {
		return reg, nil
	}

	for _, col := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}),
		c,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return reg, nil
}

// Handler 返回 Prometheus 文本格式的 HTTP 处理器
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Params 指标依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config         `optional:"true"`
	Allocator  *allocator.Allocator   `optional:"true"`
	Pool       *transportpool.Batcher `optional:"true"`
	Lifecycle  *lifecycle.Manager     `optional:"true"`
}

// ModuleOutput 指标模块输出
type ModuleOutput struct {
	fx.Out

	Collector *Collector
	Registry  *prometheus.Registry
	Gatherer  prometheus.Gatherer
}

// ProvideRegistry 提供注册表
func ProvideRegistry(p Params) (ModuleOutput, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)

	var opts []CollectorOption
	if p.Allocator != nil {
		opts = append(opts, WithAllocator(p.Allocator))
	}
	if p.Pool != nil {
		opts = append(opts, WithPool(p.Pool))
	}
	if p.Lifecycle != nil {
		opts = append(opts, WithLifecycle(p.Lifecycle))
	}

	c := NewCollector(cfg.Namespace, opts...)
	reg, err := NewRegistry(cfg, c)
	if err != nil {
		return ModuleOutput{}, err
	}
	logger.Debug("指标注册表已创建", "enabled", cfg.Enable, "namespace", cfg.Namespace, "sources", len(opts))
	return ModuleOutput{Collector: c, Registry: reg, Gatherer: reg}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideRegistry),
	)
}
