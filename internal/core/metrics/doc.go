// Package metrics 把各组件的统计快照导出为 Prometheus 指标
//
// Collector 不持有计数器，每次采集时读取数据源的快照并生成常量指标，
// 因此组件内部的统计是唯一的事实来源，ResetStats 会直接反映到指标上。
//
// # 数据源
//
//   - AllocatorSource: 块分配器（调用次数、命中/未命中、堆字节、锁等待）
//   - PoolSource: 传输连接池（连接数、复用、溢出、刷新、直发、丢弃）
//   - LifecycleSource: 生命周期管理器（当前状态、活跃进程、关闭结果）
//
// 未提供的数据源不产生对应指标。
//
// # 快速开始
//
//	c := metrics.NewCollector("mobiletun",
//	    metrics.WithAllocator(alloc),
//	    metrics.WithPool(batcher),
//	)
//	reg, err := metrics.NewRegistry(cfg.Metrics, c)
//	http.Handle("/metrics", metrics.Handler(reg))
//
// # Fx 模块
//
// Module() 从容器中取可选的 *allocator.Allocator、*transportpool.Batcher
// 与 *lifecycle.Manager，提供 *prometheus.Registry 与 prometheus.Gatherer。
// Metrics.Enable 为 false 时提供空注册表。
package metrics
