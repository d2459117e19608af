package mobiletun

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 运行时生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 运行时未启动
	ErrNotStarted = errors.New("mobiletun: runtime not started")

	// ErrAlreadyStarted 运行时已启动
	ErrAlreadyStarted = errors.New("mobiletun: runtime already started")

	// ErrRuntimeClosed 运行时已关闭
	ErrRuntimeClosed = errors.New("mobiletun: runtime closed")

	// ────────────────────────────────────────────────────────────────────────
	// 选项错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidOption 选项参数无效
	ErrInvalidOption = errors.New("mobiletun: invalid option")
)
