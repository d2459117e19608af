package mobiletun

import "github.com/dep2p/go-mobiletun/pkg/types"

// RuntimeState 运行时状态
type RuntimeState int

const (
	// StateIdle 已创建，未启动
	StateIdle RuntimeState = iota
	// StateRunning 运行中
	StateRunning
	// StateStopped 已关闭
	StateStopped
)

// String 返回状态的字符串表示
func (s RuntimeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot 运行时统计快照
type Snapshot struct {
	State              string               `json:"state"`
	Plan               types.CapacityPlan   `json:"plan"`
	Allocator          types.AllocatorStats `json:"allocator"`
	FreeBlocks         int                  `json:"free_blocks"`
	Pool               types.PoolStats      `json:"pool"`
	TransportAvailable bool                 `json:"transport_available"`
	Background         string               `json:"background"`
	ActiveProcesses    int                  `json:"active_processes"`
	WatchdogChecks     int                  `json:"watchdog_checks"`
}
