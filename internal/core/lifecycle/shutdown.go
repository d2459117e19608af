package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// ============================================================================
//                              优雅关闭
// ============================================================================

// GracefulShutdown 优雅关闭进程
//
// 流程：
//  1. 发送 SIGTERM；进程已不存在视为成功
//  2. 每 PollInterval 非阻塞检查一次退出，累计等待达到 timeout 为止；
//     检测到退出或"不是子进程"都视为成功
//  3. 超时后发送 SIGKILL 并阻塞等待一次，结果取决于 SIGKILL 是否发送成功
//
// 超时本身不是错误，只有 SIGTERM 或 SIGKILL 发送失败才返回错误。
// 成功关闭的受管进程会被标记为非活跃。
func (m *Manager) GracefulShutdown(pid int, timeout time.Duration) error {
	if pid <= 0 {
		return ErrInvalidPID
	}

	start := m.clk.Now()
	rec := types.ShutdownRecord{PID: pid}

	outcome, err := m.shutdown(pid, timeout, &rec)

	rec.Outcome = outcome
	rec.At = m.clk.Now()
	rec.Duration = rec.At.Sub(start)
	if err != nil {
		rec.Err = err.Error()
	}
	m.record(rec)

	if err != nil {
		return err
	}
	m.deactivate(pid)
	return nil
}

func (m *Manager) shutdown(pid int, timeout time.Duration, rec *types.ShutdownRecord) (types.ShutdownOutcome, error) {
	if err := m.ctl.Terminate(pid); err != nil {
		if errors.Is(err, ErrNoSuchProcess) {
			logger.Debug("进程已不存在", "pid", pid)
			return types.ShutdownAlreadyGone, nil
		}
		logger.Warn("发送终止信号失败", "pid", pid, "err", err)
		return types.ShutdownFailed, fmt.Errorf("%w %d: %w", ErrSignalFailed, pid, err)
	}

	poll := m.cfg.PollInterval.Duration()
	for waited := time.Duration(0); waited < timeout; waited += poll {
		exited, err := m.ctl.WaitNonBlocking(pid)
		rec.Polls++
		switch {
		case exited:
			logger.Info("进程已退出", "pid", pid, "polls", rec.Polls)
			return types.ShutdownExited, nil
		case errors.Is(err, ErrNoSuchChild), errors.Is(err, ErrNoSuchProcess):
			logger.Debug("进程不是子进程或已被回收", "pid", pid)
			return types.ShutdownAlreadyGone, nil
		case err != nil:
			logger.Debug("等待进程退出出错", "pid", pid, "err", err)
		}
		m.clk.Sleep(poll)
	}

	logger.Warn("优雅关闭超时，强制终止", "pid", pid, "timeout", timeout)
	if err := m.ctl.Kill(pid); err != nil {
		if errors.Is(err, ErrNoSuchProcess) {
			return types.ShutdownAlreadyGone, nil
		}
		logger.Error("强制终止失败", "pid", pid, "err", err)
		return types.ShutdownFailed, fmt.Errorf("%w %d: %w", ErrForceKillFailed, pid, err)
	}

	if err := m.ctl.Wait(pid); err != nil {
		logger.Debug("强制终止后等待失败", "pid", pid, "err", err)
	}
	return types.ShutdownForceKilled, nil
}

// ============================================================================
//                              关闭记录
// ============================================================================

func (m *Manager) record(rec types.ShutdownRecord) {
	m.histMu.Lock()
	defer m.histMu.Unlock()

	m.history.add(rec)
	if int(rec.Outcome) < len(m.outcomes) {
		m.outcomes[rec.Outcome]++
	}
}

// ShutdownHistory 返回最近的关闭记录（每个 pid 一条，按时间升序）
func (m *Manager) ShutdownHistory() []types.ShutdownRecord {
	m.histMu.Lock()
	defer m.histMu.Unlock()
	return m.history.records()
}

// LastShutdown 返回 pid 最近一次关闭记录
func (m *Manager) LastShutdown(pid int) (types.ShutdownRecord, bool) {
	m.histMu.Lock()
	defer m.histMu.Unlock()
	return m.history.get(pid)
}

// ShutdownCounts 返回各关闭结果的累计次数
func (m *Manager) ShutdownCounts() map[types.ShutdownOutcome]uint64 {
	m.histMu.Lock()
	defer m.histMu.Unlock()

	out := make(map[types.ShutdownOutcome]uint64, len(m.outcomes))
	for i, n := range m.outcomes {
		out[types.ShutdownOutcome(i)] = n
	}
	return out
}
