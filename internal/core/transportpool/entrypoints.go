package transportpool

import (
	"fmt"
	"plugin"

	"go.uber.org/multierr"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
)

// ============================================================================
//                              入口函数
// ============================================================================

// ConnectFunc 不透明传输的连接入口
type ConnectFunc func(server string, port int, auth string) int

// SendFunc 不透明传输的发送入口
type SendFunc func(handle int, data []byte) int

// ReceiveFunc 不透明传输的接收入口
type ReceiveFunc func(handle int, buf []byte) int

// CloseFunc 不透明传输的关闭入口
type CloseFunc func(handle int)

// EntryPoints 运行时解析到的四个入口
//
// 任一入口缺失时整体不可用：Connect/Send/Receive 返回 -1，Close 为空操作。
type EntryPoints struct {
	ConnectFn ConnectFunc
	SendFn    SendFunc
	ReceiveFn ReceiveFunc
	CloseFn   CloseFunc
}

var _ interfaces.Transport = EntryPoints{}

// Available 四个入口是否齐全
func (e EntryPoints) Available() bool {
	return e.ConnectFn != nil && e.SendFn != nil && e.ReceiveFn != nil && e.CloseFn != nil
}

// Connect 调用连接入口
func (e EntryPoints) Connect(server string, port int, auth string) int {
	if !e.Available() {
		return -1
	}
	return e.ConnectFn(server, port, auth)
}

// Send 调用发送入口
func (e EntryPoints) Send(handle int, data []byte) int {
	if !e.Available() {
		return -1
	}
	return e.SendFn(handle, data)
}

// Receive 调用接收入口
func (e EntryPoints) Receive(handle int, buf []byte) int {
	if !e.Available() {
		return -1
	}
	return e.ReceiveFn(handle, buf)
}

// Close 调用关闭入口
func (e EntryPoints) Close(handle int) {
	if !e.Available() {
		return
	}
	e.CloseFn(handle)
}

// FromTransport 把 Transport 实现包装为入口集合
func FromTransport(t interfaces.Transport) EntryPoints {
	if t == nil {
		return EntryPoints{}
	}
	return EntryPoints{
		ConnectFn: t.Connect,
		SendFn:    t.Send,
		ReceiveFn: t.Receive,
		CloseFn:   t.Close,
	}
}

// ============================================================================
//                              符号解析
// ============================================================================

// LookupFunc 按名称查找符号，例如 (*plugin.Plugin).Lookup
type LookupFunc func(name string) (any, error)

// Resolve 解析四个入口符号
//
// 缺失或类型不匹配的符号都会被收集到返回的错误中，错误满足
// errors.Is(err, ErrTransportUnavailable)。出错时返回的 EntryPoints
// 只包含成功解析的入口，整体仍不可用。
func Resolve(lookup LookupFunc, names config.SymbolNames) (EntryPoints, error) {
	var (
		ep   EntryPoints
		errs error
	)

	if sym, err := lookupSymbol(lookup, names.Connect); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		switch fn := sym.(type) {
		case func(string, int, string) int:
			ep.ConnectFn = fn
		case ConnectFunc:
			ep.ConnectFn = fn
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is %T", ErrSymbolType, names.Connect, sym))
		}
	}

	if sym, err := lookupSymbol(lookup, names.Send); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		switch fn := sym.(type) {
		case func(int, []byte) int:
			ep.SendFn = fn
		case SendFunc:
			ep.SendFn = fn
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is %T", ErrSymbolType, names.Send, sym))
		}
	}

	if sym, err := lookupSymbol(lookup, names.Receive); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		switch fn := sym.(type) {
		case func(int, []byte) int:
			ep.ReceiveFn = fn
		case ReceiveFunc:
			ep.ReceiveFn = fn
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is %T", ErrSymbolType, names.Receive, sym))
		}
	}

	if sym, err := lookupSymbol(lookup, names.Close); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		switch fn := sym.(type) {
		case func(int):
			ep.CloseFn = fn
		case CloseFunc:
			ep.CloseFn = fn
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is %T", ErrSymbolType, names.Close, sym))
		}
	}

	if errs != nil {
		logger.Warn("传输入口不完整，连接池将直通并失败关闭", "err", errs)
		return ep, fmt.Errorf("%w: %w", ErrTransportUnavailable, errs)
	}
	return ep, nil
}

func lookupSymbol(lookup LookupFunc, name string) (any, error) {
	if lookup == nil || name == "" {
		return nil, fmt.Errorf("%w: %q", ErrSymbolMissing, name)
	}
	sym, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrSymbolMissing, name, err)
	}
	if sym == nil {
		return nil, fmt.Errorf("%w: %q", ErrSymbolMissing, name)
	}
	return sym, nil
}

// OpenPlugin 打开 Go 插件并解析入口符号
func OpenPlugin(path string, names config.SymbolNames) (EntryPoints, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return EntryPoints{}, fmt.Errorf("%w: open plugin %s: %w", ErrTransportUnavailable, path, err)
	}
	return Resolve(func(name string) (any, error) {
		return p.Lookup(name)
	}, names)
}
