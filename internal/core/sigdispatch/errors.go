package sigdispatch

import "errors"

var (
	// ErrInvalidSignal 信号编号越界或不可捕获
	ErrInvalidSignal = errors.New("sigdispatch: invalid signal number")

	// ErrNilHandler 回调为空
	ErrNilHandler = errors.New("sigdispatch: nil handler")

	// ErrAlreadyRegistered 信号已有活跃注册
	ErrAlreadyRegistered = errors.New("sigdispatch: signal already registered")

	// ErrNotRegistered 信号没有活跃注册
	ErrNotRegistered = errors.New("sigdispatch: signal not registered")

	// ErrTableFull 分发表已满
	ErrTableFull = errors.New("sigdispatch: registration table full")

	// ErrDisabled 分发器已在配置中禁用
	ErrDisabled = errors.New("sigdispatch: dispatcher disabled")

	// ErrClosed 分发器已关闭
	ErrClosed = errors.New("sigdispatch: dispatcher closed")
)
