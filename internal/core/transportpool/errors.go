package transportpool

import "errors"

var (
	// ErrTransportUnavailable 不透明传输的入口不完整
	ErrTransportUnavailable = errors.New("transportpool: transport entry points unavailable")

	// ErrSymbolMissing 插件中找不到入口符号
	ErrSymbolMissing = errors.New("transportpool: entry point symbol missing")

	// ErrSymbolType 入口符号的类型不匹配
	ErrSymbolType = errors.New("transportpool: entry point symbol has unexpected type")
)
