//go:build unix

package lifecycle

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// osController 基于 x/sys/unix 的进程控制
type osController struct{}

func (osController) Terminate(pid int) error {
	return signalProcess(pid, unix.SIGTERM)
}

func (osController) Kill(pid int) error {
	return signalProcess(pid, unix.SIGKILL)
}

func (osController) WaitNonBlocking(pid int) (bool, error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return false, translateErrno("wait4", err)
	}
	return wpid == pid, nil
}

func (osController) Wait(pid int) error {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return translateErrno("wait4", err)
		}
		return nil
	}
}

func (osController) SetPriority(pid int, nice int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, nice); err != nil {
		return translateErrno("setpriority", err)
	}
	return nil
}

func signalProcess(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		return translateErrno("kill "+sig.String(), err)
	}
	return nil
}

// translateErrno 把 ESRCH/ECHILD 映射到包内哨兵错误，保留原始 errno
func translateErrno(op string, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%s: %w: %w", op, ErrNoSuchProcess, err)
	case errors.Is(err, unix.ECHILD):
		return fmt.Errorf("%s: %w: %w", op, ErrNoSuchChild, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
