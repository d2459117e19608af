package lifecycle

import "errors"

var (
	// ErrInvalidPID 进程号非法
	ErrInvalidPID = errors.New("lifecycle: pid must be positive")

	// ErrInvalidPriority 优先级档位非法
	ErrInvalidPriority = errors.New("lifecycle: invalid priority")

	// ErrProcessTableFull 进程表已满
	ErrProcessTableFull = errors.New("lifecycle: process table full")

	// ErrProcessNotFound 进程未注册或已注销
	ErrProcessNotFound = errors.New("lifecycle: process not found")

	// ErrCallbackTableFull 回调表已满
	ErrCallbackTableFull = errors.New("lifecycle: callback table full")

	// ErrNilCallback 回调为空
	ErrNilCallback = errors.New("lifecycle: nil callback")

	// ErrInvalidSeverity 清理严重程度越界
	ErrInvalidSeverity = errors.New("lifecycle: severity must be within [1, 10]")

	// ErrSignalFailed 终止信号发送失败
	ErrSignalFailed = errors.New("lifecycle: failed to signal process")

	// ErrForceKillFailed 强制终止失败
	ErrForceKillFailed = errors.New("lifecycle: force kill failed")

	// ErrNoSuchProcess 进程不存在
	ErrNoSuchProcess = errors.New("lifecycle: no such process")

	// ErrNoSuchChild 进程不是当前进程的子进程，或已被回收
	ErrNoSuchChild = errors.New("lifecycle: no such child")

	// ErrUnsupported 当前平台不支持进程控制
	ErrUnsupported = errors.New("lifecycle: process control unsupported on this platform")

	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("lifecycle: manager closed")
)
