package transportpool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
)

func symbolTable(tr *recordingTransport) map[string]any {
	return map[string]any{
		"Connect": tr.Connect,
		"Send":    SendFunc(tr.Send),
		"Receive": tr.Receive,
		"Close":   tr.Close,
	}
}

func lookupIn(table map[string]any) LookupFunc {
	return func(name string) (any, error) {
		sym, ok := table[name]
		if !ok {
			return nil, errors.New("symbol not found")
		}
		return sym, nil
	}
}

// TestResolve_Complete 测试四个入口齐全时解析成功
func TestResolve_Complete(t *testing.T) {
	tr := newRecordingTransport()
	ep, err := Resolve(lookupIn(symbolTable(tr)), config.DefaultPoolConfig().Symbols)
	require.NoError(t, err)
	require.True(t, ep.Available())

	h := ep.Connect("relay.example", 443, "")
	assert.Positive(t, h)
	assert.Equal(t, 3, ep.Send(h, []byte("abc")))
	ep.Close(h)
	assert.Equal(t, []int{h}, tr.closes)

	t.Log("✅ 入口解析成功")
}

// TestResolve_Missing 测试缺失符号时整体不可用
func TestResolve_Missing(t *testing.T) {
	tr := newRecordingTransport()
	table := symbolTable(tr)
	delete(table, "Close")

	ep, err := Resolve(lookupIn(table), config.DefaultPoolConfig().Symbols)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
	assert.True(t, errors.Is(err, ErrSymbolMissing))
	assert.False(t, ep.Available())
	assert.NotNil(t, ep.ConnectFn, "已解析的入口保留")

	assert.Equal(t, -1, ep.Connect("relay.example", 443, ""))
	assert.Equal(t, -1, ep.Send(1, []byte("x")))
	assert.Equal(t, -1, ep.Receive(1, make([]byte, 1)))
	ep.Close(1)
	assert.Zero(t, tr.connectCount(), "不可用时不调用任何入口")
}

// TestResolve_WrongType 测试符号类型不匹配
func TestResolve_WrongType(t *testing.T) {
	tr := newRecordingTransport()
	table := symbolTable(tr)
	table["Send"] = func(string) int { return 0 }
	table["Receive"] = 42

	ep, err := Resolve(lookupIn(table), config.DefaultPoolConfig().Symbols)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
	assert.True(t, errors.Is(err, ErrSymbolType))
	assert.False(t, errors.Is(err, ErrSymbolMissing))
	assert.False(t, ep.Available())
}

// TestResolve_NilLookup 测试空查找函数与空符号名
func TestResolve_NilLookup(t *testing.T) {
	_, err := Resolve(nil, config.DefaultPoolConfig().Symbols)
	assert.True(t, errors.Is(err, ErrSymbolMissing))

	tr := newRecordingTransport()
	names := config.DefaultPoolConfig().Symbols
	names.Receive = ""
	_, err = Resolve(lookupIn(symbolTable(tr)), names)
	assert.True(t, errors.Is(err, ErrSymbolMissing))
}

// TestOpenPlugin_Missing 测试插件不存在时失败关闭
func TestOpenPlugin_Missing(t *testing.T) {
	ep, err := OpenPlugin("/nonexistent/transport.so", config.DefaultPoolConfig().Symbols)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
	assert.False(t, ep.Available())
}

// TestFromTransport 测试包装 Transport 实现
func TestFromTransport(t *testing.T) {
	assert.False(t, FromTransport(nil).Available())

	tr := newRecordingTransport()
	ep := FromTransport(tr)
	require.True(t, ep.Available())

	buf := make([]byte, 8)
	n := ep.Receive(1, buf)
	assert.Equal(t, "pong", string(buf[:n]))
}

// TestResolveUnderlying 测试底层传输选择
func TestResolveUnderlying(t *testing.T) {
	tr := newRecordingTransport()
	assert.Same(t, tr, ResolveUnderlying(tr, config.DefaultPoolConfig()))

	got := ResolveUnderlying(nil, config.DefaultPoolConfig())
	ep, ok := got.(EntryPoints)
	require.True(t, ok)
	assert.False(t, ep.Available())

	cfg := config.DefaultPoolConfig()
	cfg.PluginPath = "/nonexistent/transport.so"
	ep, ok = ResolveUnderlying(nil, cfg).(EntryPoints)
	require.True(t, ok)
	assert.False(t, ep.Available())
}

// TestModule_InjectedTransport 测试通过 Fx 注入不透明传输
func TestModule_InjectedTransport(t *testing.T) {
	tr := newRecordingTransport()
	var pooled interfaces.PooledTransport

	app := fxtest.New(t,
		fx.Provide(fx.Annotate(
			func() interfaces.Transport { return tr },
			fx.ResultTags(`name:"opaque_transport"`),
		)),
		Module(),
		fx.Populate(&pooled),
	)
	require.NoError(t, app.Start(context.Background()))

	h := pooled.Connect("relay.example", 443, "")
	require.Positive(t, h)
	assert.Equal(t, 3, pooled.Send(h, []byte("abc")))
	assert.Empty(t, tr.sent(), "批次尚未刷新")

	require.NoError(t, app.Stop(context.Background()))
	sends := tr.sent()
	require.Len(t, sends, 1, "停止时刷新所有批次")
	assert.Equal(t, []byte("abc"), sends[0].data)
}
