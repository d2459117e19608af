package lifecycle

import (
	"fmt"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// ============================================================================
//                              进程表
// ============================================================================

// RegisterProcess 注册受管进程并立即应用档位对应的 nice 值
//
// 同一 pid 的已有条目（包括已注销的）会被复用并重新激活。
// nice 值调整失败只记录日志，注册仍然成功。
func (m *Manager) RegisterProcess(pid int, priority types.Priority) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}

	nice := priority.NiceValue()

	m.procMu.Lock()
	if m.closed {
		m.procMu.Unlock()
		return ErrClosed
	}
	if i := m.indexOf(pid); i >= 0 {
		m.processes[i] = processRecord{pid: pid, priority: priority, nice: nice, active: true}
	} else {
		if len(m.processes) >= m.cfg.MaxProcesses {
			m.procMu.Unlock()
			return ErrProcessTableFull
		}
		m.processes = append(m.processes, processRecord{pid: pid, priority: priority, nice: nice, active: true})
	}
	m.procMu.Unlock()

	if err := m.ctl.SetPriority(pid, nice); err != nil {
		logger.Warn("设置进程优先级失败", "pid", pid, "nice", nice, "err", err)
	}
	logger.Info("进程已注册", "pid", pid, "priority", priority.String(), "nice", nice)
	return nil
}

// UnregisterProcess 将进程标记为非活跃，不回收槽位
func (m *Manager) UnregisterProcess(pid int) error {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	i := m.indexOf(pid)
	if i < 0 || !m.processes[i].active {
		return ErrProcessNotFound
	}
	m.processes[i].active = false

	logger.Info("进程已注销", "pid", pid)
	return nil
}

// SetProcessPriority 调整活跃进程的优先级
//
// OS 调整失败时返回包装后的 OS 错误，表中记录保持不变。
func (m *Manager) SetProcessPriority(pid int, priority types.Priority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}

	m.procMu.Lock()
	defer m.procMu.Unlock()

	i := m.indexOf(pid)
	if i < 0 || !m.processes[i].active {
		return ErrProcessNotFound
	}

	nice := priority.NiceValue()
	if err := m.ctl.SetPriority(pid, nice); err != nil {
		return fmt.Errorf("set priority of %d to %d: %w", pid, nice, err)
	}
	m.processes[i].priority = priority
	m.processes[i].nice = nice

	logger.Debug("进程优先级已调整", "pid", pid, "priority", priority.String(), "nice", nice)
	return nil
}

// Processes 返回进程表快照（包括非活跃条目）
func (m *Manager) Processes() []types.ProcessInfo {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	out := make([]types.ProcessInfo, 0, len(m.processes))
	for _, p := range m.processes {
		out = append(out, types.ProcessInfo{
			PID:       p.pid,
			Priority:  p.priority,
			NiceValue: p.nice,
			Active:    p.active,
		})
	}
	return out
}

// ActiveProcessCount 返回活跃进程数
func (m *Manager) ActiveProcessCount() int {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	n := 0
	for _, p := range m.processes {
		if p.active {
			n++
		}
	}
	return n
}

// deactivate 关闭成功后将进程标记为非活跃
func (m *Manager) deactivate(pid int) {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	if i := m.indexOf(pid); i >= 0 {
		m.processes[i].active = false
	}
}

// indexOf 查找 pid 对应的条目，调用方需持有 procMu
func (m *Manager) indexOf(pid int) int {
	for i := range m.processes {
		if m.processes[i].pid == pid {
			return i
		}
	}
	return -1
}
