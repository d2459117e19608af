// Package transportpool 在不透明传输的入口前放置连接池与发送批量器
//
// Batcher 实现与底层相同的四个入口，调用方无需感知池化与批量：
//   - Connect 优先复用同一 (server, port) 的空闲连接，池满后直连不入池
//   - Send 把负载暂存到连接自己的批次中，批次满或距上次刷新超时时
//     合并为一次底层发送；超过单条上限的负载先刷新批次再直接发送
//   - Receive 始终直通
//   - Close 丢弃未刷新的批次并转发底层关闭
//
// 池表由一把锁保护，只在扫描/插入期间持有；每个连接的批次有自己的锁。
// 底层 Connect 调用从不在池表锁内进行。
//
// Send 的返回值是已暂存的字节数，不是送达确认。刷新由下一次 Send
// 惰性触发，没有后台定时器；需要立即送达时调用 Flush 或 FlushAll。
package transportpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

var logger = log.Logger("core/transportpool")

// Option 批量器选项
type Option func(*Batcher)

// WithClock 替换时钟
func WithClock(clk clock.Clock) Option {
	return func(b *Batcher) {
		if clk != nil {
			b.clk = clk
		}
	}
}

// availability 可报告入口是否齐全的传输
type availability interface {
	Available() bool
}

// ConnectionInfo 池化连接快照
type ConnectionInfo struct {
	ID           string    `json:"id"`
	Handle       int       `json:"handle"`
	Server       string    `json:"server"`
	Port         int       `json:"port"`
	Busy         bool      `json:"busy"`
	LastUsed     time.Time `json:"last_used"`
	Pending      int       `json:"pending"`
	PendingBytes int       `json:"pending_bytes"`
}

// ============================================================================
//                              批量器
// ============================================================================

// Batcher 连接池与发送批量器
type Batcher struct {
	tr        interfaces.Transport
	available bool
	cfg       config.PoolConfig
	clk       clock.Clock

	// mu 保护池表以及 conn 的 busy/lastUsed/endpoint 字段；
	// 需要同时持有时先取 mu 再取 conn.mu
	mu       sync.Mutex
	conns    []*conn
	byHandle map[int]*conn

	hits           atomic.Uint64
	misses         atomic.Uint64
	overflow       atomic.Uint64
	flushes        atomic.Uint64
	flushedBytes   atomic.Uint64
	flushFailures  atomic.Uint64
	directSends    atomic.Uint64
	droppedEntries atomic.Uint64
}

var _ interfaces.PooledTransport = (*Batcher)(nil)

// New 创建批量器
//
// underlying 实现了 Available() 且返回 false 时（例如入口不完整的
// EntryPoints），批量器不做池化与批量，所有调用直通底层。
func New(underlying interfaces.Transport, cfg config.PoolConfig, opts ...Option) *Batcher {
	def := config.DefaultPoolConfig()
	if cfg.MaxConnections <= 0 || cfg.MaxConnections > config.PoolCapacity {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = def.FlushTimeout
	}
	if cfg.MaxEntryBytes <= 0 {
		cfg.MaxEntryBytes = def.MaxEntryBytes
	}

	available := underlying != nil
	if a, ok := underlying.(availability); ok && available {
		available = a.Available()
	}
	if underlying == nil {
		underlying = EntryPoints{}
	}

	b := &Batcher{
		tr:        underlying,
		available: available,
		cfg:       cfg,
		clk:       clock.New(),
		conns:     make([]*conn, 0, cfg.MaxConnections),
		byHandle:  make(map[int]*conn, cfg.MaxConnections),
	}
	for _, opt := range opts {
		opt(b)
	}

	if !available {
		logger.Warn("底层传输不可用，连接池与批量已禁用")
	}
	return b
}

// Available 底层入口是否完整可用
func (b *Batcher) Available() bool {
	return b.available
}

// ============================================================================
//                              连接
// ============================================================================

// Connect 获取到 server:port 的连接
//
// 命中空闲的同端点连接时直接返回其句柄，不调用底层 Connect。
// 未命中时调用底层 Connect；成功且池未满时入池，池满时不跟踪（溢出回退）。
// 底层失败的返回值原样返回，不产生池副作用。
func (b *Batcher) Connect(server string, port int, auth string) int {
	if !b.available {
		return b.tr.Connect(server, port, auth)
	}

	if h, ok := b.acquireIdle(server, port); ok {
		return h
	}

	h := b.tr.Connect(server, port, auth)
	if h < 0 {
		logger.Debug("底层连接失败", "server", server, "port", port, "code", h)
		return h
	}
	b.misses.Add(1)
	b.track(h, server, port)
	return h
}

// acquireIdle 在池中查找空闲的同端点连接并标记为占用
func (b *Batcher) acquireIdle(server string, port int) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.conns {
		if !c.busy && c.server == server && c.port == port {
			c.busy = true
			c.lastUsed = b.clk.Now()
			b.hits.Add(1)
			logger.Debug("复用池化连接", "id", c.id, "handle", c.handle)
			return c.handle, true
		}
	}
	return 0, false
}

// track 把新句柄加入池表
func (b *Batcher) track(handle int, server string, port int) {
	now := b.clk.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	// 底层复用了一个仍在表中的句柄号，更新原条目而不是重复插入
	if c, ok := b.byHandle[handle]; ok {
		c.server, c.port = server, port
		c.busy = true
		c.lastUsed = now
		return
	}

	if len(b.conns) >= b.cfg.MaxConnections {
		b.overflow.Add(1)
		logger.Warn("连接池已满，连接不入池", "handle", handle, "max", b.cfg.MaxConnections)
		return
	}

	c := newConn(handle, server, port, now)
	b.conns = append(b.conns, c)
	b.byHandle[handle] = c
	logger.Debug("新连接入池", "id", c.id, "handle", handle, "server", server, "port", port)
}

// lookup 按句柄查找池化连接
func (b *Batcher) lookup(handle int) *conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byHandle[handle]
}

// Release 将句柄标记为空闲以便复用，不调用底层关闭，也不刷新批次
func (b *Batcher) Release(handle int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.byHandle[handle]; ok {
		c.busy = false
		c.lastUsed = b.clk.Now()
	}
}

// Close 丢弃句柄上未刷新的批次并转发底层关闭
//
// 默认把池条目标记为空闲，之后同端点的 Connect 会再次拿到该句柄；
// 底层关闭后句柄不能复用时应启用 EvictOnClose，此时条目被移除。
// 需要送达的数据必须在 Close 之前调用 Flush。
func (b *Batcher) Close(handle int) {
	if !b.available {
		b.tr.Close(handle)
		return
	}

	b.mu.Lock()
	c, ok := b.byHandle[handle]
	dropped := 0
	if ok {
		// 先丢弃批次再标记空闲，复用方拿到句柄时批次已为空
		dropped = c.discard()
		if b.cfg.EvictOnClose {
			b.evictLocked(c)
		} else {
			c.busy = false
			c.lastUsed = b.clk.Now()
		}
	}
	b.mu.Unlock()

	if dropped > 0 {
		b.droppedEntries.Add(uint64(dropped))
		logger.Warn("关闭时丢弃未刷新的批次", "id", c.id, "handle", handle, "entries", dropped)
	}
	b.tr.Close(handle)
}

func (b *Batcher) evictLocked(c *conn) {
	delete(b.byHandle, c.handle)
	for i, cc := range b.conns {
		if cc == c {
			b.conns = append(b.conns[:i], b.conns[i+1:]...)
			break
		}
	}
}

// ============================================================================
//                              收发
// ============================================================================

// Send 在句柄上发送数据
//
// 返回暂存的字节数。触发的刷新失败时批次被丢弃，返回底层的负值。
// 超过 MaxEntryBytes 的负载返回底层直接发送的结果。未入池的句柄直通底层。
func (b *Batcher) Send(handle int, data []byte) int {
	if !b.available {
		return b.tr.Send(handle, data)
	}
	if len(data) == 0 {
		return 0
	}

	c := b.lookup(handle)
	if c == nil {
		b.directSends.Add(1)
		return b.tr.Send(handle, data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(data) > b.cfg.MaxEntryBytes {
		if c.entries > 0 {
			if r := b.flushLocked(c); r < 0 {
				return r
			}
		}
		b.directSends.Add(1)
		return b.tr.Send(handle, data)
	}

	now := b.clk.Now()
	if c.entries >= b.cfg.BatchSize || now.Sub(c.lastFlush) >= b.cfg.FlushTimeout.Duration() {
		if r := b.flushLocked(c); r < 0 {
			return r
		}
	}

	c.buf = append(c.buf, data...)
	c.entries++

	if c.entries >= b.cfg.BatchSize {
		if r := b.flushLocked(c); r < 0 {
			return r
		}
	}
	return len(data)
}

// Receive 直通底层接收
func (b *Batcher) Receive(handle int, buf []byte) int {
	return b.tr.Receive(handle, buf)
}

// Flush 立即刷新句柄上的批次
//
// 返回底层发送结果；批次为空或句柄未入池时返回 0。
func (b *Batcher) Flush(handle int) int {
	if !b.available {
		return 0
	}
	c := b.lookup(handle)
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return b.flushLocked(c)
}

// FlushAll 刷新所有池化连接的批次，返回刷新失败的连接数
func (b *Batcher) FlushAll() int {
	if !b.available {
		return 0
	}

	b.mu.Lock()
	conns := append([]*conn(nil), b.conns...)
	b.mu.Unlock()

	failed := 0
	for _, c := range conns {
		c.mu.Lock()
		if b.flushLocked(c) < 0 {
			failed++
		}
		c.mu.Unlock()
	}
	return failed
}

// flushLocked 把批次合并为一次底层发送，调用方需持有 c.mu
func (b *Batcher) flushLocked(c *conn) int {
	c.lastFlush = b.clk.Now()
	if c.entries == 0 {
		return 0
	}

	n, size := c.entries, len(c.buf)
	r := b.tr.Send(c.handle, c.buf)
	c.reset()

	if r < 0 {
		b.flushFailures.Add(1)
		logger.Warn("批次刷新失败，批次已丢弃", "id", c.id, "handle", c.handle, "entries", n, "bytes", size, "code", r)
		return r
	}
	b.flushes.Add(1)
	b.flushedBytes.Add(uint64(size))
	logger.Debug("批次已刷新", "id", c.id, "handle", c.handle, "entries", n, "bytes", size)
	return r
}

// ============================================================================
//                              诊断
// ============================================================================

// Stats 返回统计快照
func (b *Batcher) Stats() types.PoolStats {
	b.mu.Lock()
	pooled := len(b.conns)
	busy := 0
	for _, c := range b.conns {
		if c.busy {
			busy++
		}
	}
	b.mu.Unlock()

	return types.PoolStats{
		Pooled:         pooled,
		Busy:           busy,
		Hits:           b.hits.Load(),
		Misses:         b.misses.Load(),
		Overflow:       b.overflow.Load(),
		Flushes:        b.flushes.Load(),
		FlushedBytes:   b.flushedBytes.Load(),
		FlushFailures:  b.flushFailures.Load(),
		DirectSends:    b.directSends.Load(),
		DroppedEntries: b.droppedEntries.Load(),
	}
}

// Connections 返回池化连接快照
func (b *Batcher) Connections() []ConnectionInfo {
	b.mu.Lock()
	conns := append([]*conn(nil), b.conns...)
	infos := make([]ConnectionInfo, len(conns))
	for i, c := range conns {
		infos[i] = ConnectionInfo{
			ID:       c.id.String(),
			Handle:   c.handle,
			Server:   c.server,
			Port:     c.port,
			Busy:     c.busy,
			LastUsed: c.lastUsed,
		}
	}
	b.mu.Unlock()

	for i, c := range conns {
		c.mu.Lock()
		infos[i].Pending = c.entries
		infos[i].PendingBytes = len(c.buf)
		c.mu.Unlock()
	}
	return infos
}

// ============================================================================
//                              池化连接
// ============================================================================

// conn 池化连接
type conn struct {
	id     uuid.UUID
	handle int

	// 以下字段由 Batcher.mu 保护
	server   string
	port     int
	busy     bool
	lastUsed time.Time

	// mu 保护批次
	mu        sync.Mutex
	buf       []byte
	entries   int
	lastFlush time.Time
}

func newConn(handle int, server string, port int, now time.Time) *conn {
	return &conn{
		id:        uuid.New(),
		handle:    handle,
		server:    server,
		port:      port,
		busy:      true,
		lastUsed:  now,
		lastFlush: now,
	}
}

// reset 清空批次，保留缓冲容量
func (c *conn) reset() {
	c.buf = c.buf[:0]
	c.entries = 0
}

// discard 丢弃批次并返回丢弃的条目数
func (c *conn) discard() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.entries
	c.reset()
	return n
}
