// Package types 定义 mobiletun 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - enums.go    - BackgroundState, Priority, ShutdownOutcome
//   - capacity.go - CapacityRequest, CapacityPlan, Tuning
//   - stats.go    - AllocatorStats, PoolStats, MemoryStats, ProcessInfo, ShutdownRecord
//
// # 类型分类
//
// 输入类型（只读）：
//   - CapacityRequest
//
// 快照类型（某一时刻的拷贝，不随源对象变化）：
//   - AllocatorStats, PoolStats, MemoryStats, ProcessInfo, ShutdownRecord
//
// 派生类型：
//   - CapacityPlan
package types
