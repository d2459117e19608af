// Package sigdispatch 实现固定容量的 OS 信号分发表
//
// 每个信号编号最多一个活跃注册。所有注册共享同一个投递通道和
// 分发协程，分发协程按信号编号查找注册并调用其回调，
// 每次投递至多触发一个回调。
//
// Go 没有每个协程的信号屏蔽字，屏蔽在分发器层面实现：被屏蔽信号的
// 投递保持挂起（同一信号编号合并为一次），解除屏蔽时再分发。
package sigdispatch

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/interfaces"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
)

var logger = log.Logger("core/sigdispatch")

// registration 分发表条目
type registration struct {
	signum  int
	handler interfaces.SignalHandler
	active  bool
}

// osHooks OS 信号原语，测试中可替换
type osHooks struct {
	notify func(c chan<- os.Signal, sig ...os.Signal)
	reset  func(sig ...os.Signal)
	stop   func(c chan<- os.Signal)
}

var defaultHooks = osHooks{
	notify: signal.Notify,
	reset:  signal.Reset,
	stop:   signal.Stop,
}

// ============================================================================
//                              分发器
// ============================================================================

// Dispatcher 信号分发器
type Dispatcher struct {
	enabled bool
	limit   int
	hooks   osHooks

	mu          sync.Mutex
	table       []registration
	mask        uint64
	initialMask uint64
	pending     uint64
	closed      bool

	sigCh     chan os.Signal
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ interfaces.SignalDispatcher = (*Dispatcher)(nil)

// New 创建信号分发器并启动分发协程
//
// 可注册的信号编号范围为 [1, cfg.MaxRegistrations)。cfg.InitialMask
// 中的信号在初始化时即处于屏蔽状态，UnblockAll 恢复到该集合。
func New(cfg config.SignalConfig) *Dispatcher {
	return newDispatcher(cfg, defaultHooks)
}

func newDispatcher(cfg config.SignalConfig, hooks osHooks) *Dispatcher {
	limit := cfg.MaxRegistrations
	if limit <= 0 || limit > config.SignalTableCapacity {
		limit = config.DefaultSignalConfig().MaxRegistrations
	}

	d := &Dispatcher{
		enabled: cfg.Enable,
		limit:   limit,
		hooks:   hooks,
		table:   make([]registration, limit),
		sigCh:   make(chan os.Signal, limit),
		done:    make(chan struct{}),
	}
	for _, sig := range cfg.InitialMask {
		if sig > 0 && sig < limit {
			d.initialMask |= bit(sig)
		}
	}
	d.mask = d.initialMask

	d.wg.Add(1)
	go d.loop()
	return d
}

// Register 为信号注册回调，并把分发通道安装为该信号的 OS 处理
func (d *Dispatcher) Register(signum int, handler interfaces.SignalHandler) error {
	if err := d.validate(signum); err != nil {
		return err
	}
	if uncatchable(signum) {
		return ErrInvalidSignal
	}
	if handler == nil {
		return ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if !d.enabled {
		return ErrDisabled
	}

	slot := -1
	for i := range d.table {
		if d.table[i].active {
			if d.table[i].signum == signum {
				return ErrAlreadyRegistered
			}
			continue
		}
		if slot < 0 {
			slot = i
		}
	}
	if slot < 0 {
		return ErrTableFull
	}

	d.table[slot] = registration{signum: signum, handler: handler, active: true}
	d.hooks.notify(d.sigCh, syscall.Signal(signum))

	logger.Info("信号已注册", "signal", signum, "slot", slot)
	return nil
}

// Unregister 注销信号回调并恢复 OS 默认处理
func (d *Dispatcher) Unregister(signum int) error {
	if err := d.validate(signum); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	i := d.find(signum)
	if i < 0 {
		return ErrNotRegistered
	}
	d.table[i] = registration{}
	d.pending &^= bit(signum)
	d.hooks.reset(syscall.Signal(signum))

	logger.Info("信号已注销", "signal", signum)
	return nil
}

// Registered 返回信号是否有活跃注册
func (d *Dispatcher) Registered(signum int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.find(signum) >= 0
}

// ============================================================================
//                              屏蔽
// ============================================================================

// Block 屏蔽单个信号
func (d *Dispatcher) Block(signum int) error {
	if err := d.validate(signum); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.mask |= bit(signum)
	return nil
}

// Unblock 解除单个信号的屏蔽，挂起的投递会立即分发
func (d *Dispatcher) Unblock(signum int) error {
	if err := d.validate(signum); err != nil {
		return err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mask &^= bit(signum)
	ready := d.takeReady()
	d.mu.Unlock()

	d.dispatchAll(ready)
	return nil
}

// BlockAll 屏蔽所有可注册的信号
func (d *Dispatcher) BlockAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.mask = d.fullMask()
	return nil
}

// UnblockAll 恢复初始化时的屏蔽集，挂起且不再被屏蔽的投递会立即分发
func (d *Dispatcher) UnblockAll() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mask = d.initialMask
	ready := d.takeReady()
	d.mu.Unlock()

	d.dispatchAll(ready)
	return nil
}

// Blocked 返回信号当前是否被屏蔽
func (d *Dispatcher) Blocked(signum int) bool {
	if d.validate(signum) != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mask&bit(signum) != 0
}

// ============================================================================
//                              分发
// ============================================================================

// Close 停止分发协程并恢复所有已注册信号的默认处理
//
// 重复调用是空操作。
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		for i := range d.table {
			if d.table[i].active {
				d.hooks.reset(syscall.Signal(d.table[i].signum))
				d.table[i] = registration{}
			}
		}
		d.pending = 0
		d.mu.Unlock()

		d.hooks.stop(d.sigCh)
		close(d.done)
		d.wg.Wait()
		logger.Debug("信号分发器已关闭")
	})
	return nil
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case sig := <-d.sigCh:
			if s, ok := sig.(syscall.Signal); ok {
				d.deliver(int(s))
			}
		}
	}
}

// deliver 处理一次信号投递
func (d *Dispatcher) deliver(signum int) {
	if signum <= 0 || signum >= d.limit {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.mask&bit(signum) != 0 {
		d.pending |= bit(signum)
		d.mu.Unlock()
		logger.Debug("信号被屏蔽，挂起", "signal", signum)
		return
	}
	handler := d.handlerFor(signum)
	d.mu.Unlock()

	if handler != nil {
		handler(signum)
	}
}

// takeReady 取出已挂起且未被屏蔽的信号，调用方需持锁
func (d *Dispatcher) takeReady() []int {
	ready := d.pending &^ d.mask
	if ready == 0 {
		return nil
	}
	d.pending &^= ready

	var out []int
	for sig := 1; sig < d.limit; sig++ {
		if ready&bit(sig) != 0 {
			out = append(out, sig)
		}
	}
	return out
}

func (d *Dispatcher) dispatchAll(signals []int) {
	for _, sig := range signals {
		d.deliver(sig)
	}
}

// handlerFor 返回第一个匹配的活跃注册回调，调用方需持锁
func (d *Dispatcher) handlerFor(signum int) interfaces.SignalHandler {
	if i := d.find(signum); i >= 0 {
		return d.table[i].handler
	}
	return nil
}

func (d *Dispatcher) find(signum int) int {
	for i := range d.table {
		if d.table[i].active && d.table[i].signum == signum {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) validate(signum int) error {
	if signum <= 0 || signum >= d.limit {
		return ErrInvalidSignal
	}
	return nil
}

func (d *Dispatcher) fullMask() uint64 {
	var m uint64
	for sig := 1; sig < d.limit; sig++ {
		m |= bit(sig)
	}
	return m
}

func bit(signum int) uint64 {
	return 1 << uint(signum)
}
