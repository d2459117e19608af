package types

// ============================================================================
//                              BackgroundState - 后台状态
// ============================================================================

// BackgroundState 宿主应用的后台状态
//
// 由宿主边界通过 SetState 通知，每个管理器实例同一时刻只有一个当前值。
type BackgroundState int

const (
	// StateForeground 前台运行（初始状态）
	StateForeground BackgroundState = iota
	// StateBackground 进入后台
	StateBackground
	// StateDoze 系统 Doze 模式
	StateDoze
	// StateLowMemory 系统内存紧张
	StateLowMemory
	// StateBatterySaver 省电模式
	StateBatterySaver
)

// String 返回状态的字符串表示
func (s BackgroundState) String() string {
	switch s {
	case StateForeground:
		return "FOREGROUND"
	case StateBackground:
		return "BACKGROUND"
	case StateDoze:
		return "DOZE"
	case StateLowMemory:
		return "LOW_MEMORY"
	case StateBatterySaver:
		return "BATTERY_SAVER"
	default:
		return "UNKNOWN"
	}
}

// ParseBackgroundState 从字符串解析后台状态
func ParseBackgroundState(s string) (BackgroundState, bool) {
	for st := StateForeground; st <= StateBatterySaver; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateForeground, false
}

// ============================================================================
//                              Priority - 进程优先级
// ============================================================================

// Priority 进程优先级档位
//
// 档位顺序：CRITICAL > HIGH > NORMAL > LOW > BACKGROUND
type Priority int

const (
	// PriorityCritical 关键进程
	PriorityCritical Priority = iota
	// PriorityHigh 高优先级
	PriorityHigh
	// PriorityNormal 普通优先级
	PriorityNormal
	// PriorityLow 低优先级
	PriorityLow
	// PriorityBackground 后台优先级
	PriorityBackground
)

// NiceValue 返回档位对应的 OS nice 值
//
// 未知档位按 NORMAL 处理。
func (p Priority) NiceValue() int {
	switch p {
	case PriorityCritical:
		return -10
	case PriorityHigh:
		return -5
	case PriorityLow:
		return 5
	case PriorityBackground:
		return 15
	default:
		return 0
	}
}

// Valid 检查档位是否合法
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityBackground
}

// String 返回优先级的字符串表示
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	case PriorityBackground:
		return "BACKGROUND"
	default:
		return "UNKNOWN"
	}
}

// ============================================================================
//                              ShutdownOutcome - 关闭结果
// ============================================================================

// ShutdownOutcome 优雅关闭的结果
type ShutdownOutcome int

const (
	// ShutdownExited 进程在超时内退出
	ShutdownExited ShutdownOutcome = iota
	// ShutdownAlreadyGone 进程已不存在
	ShutdownAlreadyGone
	// ShutdownForceKilled 超时后强制终止
	ShutdownForceKilled
	// ShutdownFailed 关闭失败
	ShutdownFailed
)

// String 返回结果的字符串表示
func (o ShutdownOutcome) String() string {
	switch o {
	case ShutdownExited:
		return "exited"
	case ShutdownAlreadyGone:
		return "already_gone"
	case ShutdownForceKilled:
		return "force_killed"
	case ShutdownFailed:
		return "failed"
	default:
		return "unknown"
	}
}
