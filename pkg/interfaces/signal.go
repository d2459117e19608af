package interfaces

// SignalHandler 信号回调，参数为信号编号
type SignalHandler func(signum int)

// SignalDispatcher 固定容量的信号分发表
type SignalDispatcher interface {
	// Register 为信号注册回调
	Register(signum int, handler SignalHandler) error

	// Unregister 注销信号回调并恢复默认处理
	Unregister(signum int) error

	// Block 屏蔽单个信号
	Block(signum int) error

	// Unblock 解除单个信号的屏蔽
	Unblock(signum int) error

	// BlockAll 屏蔽所有信号
	BlockAll() error

	// UnblockAll 恢复初始化时的屏蔽集
	UnblockAll() error
}
