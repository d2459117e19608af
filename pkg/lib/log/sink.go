package log

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink 宿主应用的日志接收端
//
// 移动端宿主（Kotlin/Swift）实现此接口接收日志行，level 为
// debug/info/warn/error，component 为产生日志的组件名（可能为空）。
type Sink interface {
	Log(level string, component string, message string)
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(level, component, message string)

// Log 实现 Sink
func (f SinkFunc) Log(level, component, message string) { f(level, component, message) }

var zapLogger atomic.Pointer[zap.Logger]

func init() {
	zapLogger.Store(zap.NewNop())
}

// Zap 返回当前的 zap logger
//
// 未安装 Sink 时返回 Nop logger。供 fx 事件日志和内存看门狗使用。
func Zap() *zap.Logger {
	return zapLogger.Load()
}

// SetSink 将 slog 默认 logger 与 zap logger 都重定向到 sink
//
// sink 为 nil 时恢复 stderr 文本输出，zap logger 恢复为 Nop。
func SetSink(sink Sink, level string) error {
	lvl, ok := ParseLevel(level)
	if !ok {
		return fmt.Errorf("log: unknown level %q", level)
	}
	if sink == nil {
		Setup("text", lvl)
		zapLogger.Store(zap.NewNop())
		return nil
	}

	slog.SetDefault(slog.New(NewSinkHandler(sink, lvl)))
	zapLogger.Store(zap.New(NewZapCore(sink, slogToZap(lvl))))
	return nil
}

// ============================================================================
//                              slog Handler
// ============================================================================

type sinkHandler struct {
	sink      Sink
	level     slog.Leveler
	component string
	attrs     []slog.Attr
	group     string

	mu *sync.Mutex
}

// NewSinkHandler 创建输出到 sink 的 slog.Handler
func NewSinkHandler(sink Sink, level slog.Leveler) slog.Handler {
	return &sinkHandler{sink: sink, level: level, mu: &sync.Mutex{}}
}

func (h *sinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *sinkHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	component := h.component
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" && h.group == "" {
			component = a.Value.String()
			return true
		}
		fields[h.prefixed(a.Key)] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink.Log(slogLevelName(r.Level), component, formatMessage(r.Message, fields))
	return nil
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == "component" && h.group == "" {
			nh.component = a.Value.String()
			continue
		}
		a.Key = h.prefixed(a.Key)
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.group = h.prefixed(name)
	return &nh
}

func (h *sinkHandler) prefixed(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

// ============================================================================
//                              zap Core
// ============================================================================

type sinkCore struct {
	sink     Sink
	minLevel zapcore.Level
	fields   []zapcore.Field
}

// NewZapCore 创建输出到 sink 的 zapcore.Core
//
// zap logger 的名称（Named）作为 component 传给 sink。
func NewZapCore(sink Sink, level zapcore.Level) zapcore.Core {
	return &sinkCore{sink: sink, minLevel: level}
}

func (c *sinkCore) Enabled(level zapcore.Level) bool {
	return level >= c.minLevel
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	base := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	base = append(base, c.fields...)
	base = append(base, fields...)
	return &sinkCore{sink: c.sink, minLevel: c.minLevel, fields: base}
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.sink.Log(zapLevelName(ent.Level), ent.LoggerName, formatMessage(ent.Message, enc.Fields))
	return nil
}

func (c *sinkCore) Sync() error { return nil }

// ============================================================================
//                              格式化
// ============================================================================

func formatMessage(msg string, fields map[string]any) string {
	msg = strings.TrimSpace(msg)
	if len(fields) == 0 {
		return msg
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	b.WriteString(" [")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		if s, ok := fields[k].(string); ok {
			b.WriteString(s)
		} else {
			fmt.Fprint(&b, fields[k])
		}
	}
	b.WriteByte(']')
	return b.String()
}

func slogLevelName(l slog.Level) string {
	switch {
	case l >= LevelError:
		return "error"
	case l >= LevelWarn:
		return "warn"
	case l >= LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func zapLevelName(l zapcore.Level) string {
	switch {
	case l >= zapcore.ErrorLevel:
		return "error"
	case l == zapcore.WarnLevel:
		return "warn"
	case l == zapcore.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}

func slogToZap(l slog.Level) zapcore.Level {
	switch {
	case l >= LevelError:
		return zapcore.ErrorLevel
	case l >= LevelWarn:
		return zapcore.WarnLevel
	case l >= LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
