package lifecycle

// ProcessController OS 进程控制原语
//
// 实现需要把"进程不存在"翻译为 ErrNoSuchProcess，把
// "不是子进程或已回收"翻译为 ErrNoSuchChild，其他错误原样包装。
type ProcessController interface {
	// Terminate 发送终止信号（SIGTERM）
	Terminate(pid int) error

	// Kill 发送强制终止信号（SIGKILL）
	Kill(pid int) error

	// WaitNonBlocking 非阻塞地检查进程是否已退出
	WaitNonBlocking(pid int) (exited bool, err error)

	// Wait 阻塞等待进程退出
	Wait(pid int) error

	// SetPriority 设置进程 nice 值
	SetPriority(pid int, nice int) error
}

// NewOSController 返回当前平台的进程控制实现
func NewOSController() ProcessController {
	return osController{}
}
