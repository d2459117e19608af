package interfaces

import (
	"time"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// StateCallback 后台状态变化回调
//
// 在管理器锁内同步调用，回调中不得再调用同一管理器的公共方法。
type StateCallback func(from, to types.BackgroundState)

// ConstraintCallback 资源约束回调
//
// reason 为 "low_memory" 或 "cleanup_request"，severity 取值 1-10。
type ConstraintCallback func(reason string, severity int)

// LifecycleManager 后台进程生命周期管理器
type LifecycleManager interface {
	// SetState 设置后台状态，状态变化时同步通知回调
	SetState(state types.BackgroundState)

	// State 返回当前状态
	State() types.BackgroundState

	// IsDozeMode 当前是否处于 Doze 模式
	IsDozeMode() bool

	// RegisterStateCallback 注册状态回调
	RegisterStateCallback(cb StateCallback) error

	// RegisterConstraintCallback 注册约束回调
	RegisterConstraintCallback(cb ConstraintCallback) error

	// RegisterProcess 注册受管进程
	RegisterProcess(pid int, priority types.Priority) error

	// UnregisterProcess 注销受管进程
	UnregisterProcess(pid int) error

	// SetProcessPriority 调整受管进程优先级
	SetProcessPriority(pid int, priority types.Priority) error

	// GracefulShutdown 优雅关闭进程，超时后强制终止
	GracefulShutdown(pid int, timeout time.Duration) error

	// IsLowMemory 可用内存是否低于阈值（MB），返回可用内存 MB
	IsLowMemory(thresholdMB uint64) (bool, uint64, error)

	// RequestCleanup 请求资源清理
	RequestCleanup(severity int) error

	// MemoryStats 返回当前进程内存占用
	MemoryStats() (types.MemoryStats, error)
}
