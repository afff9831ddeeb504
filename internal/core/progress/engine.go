package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-pgas/internal/util/logger"
)

var log = logger.Logger("progress")

// DefaultDelay 两次推进之间的默认休眠
const DefaultDelay = 1000 * time.Nanosecond

var (
	// ErrJoinFailed 进度线程未在期限内退出
	ErrJoinFailed = errors.New("progress thread join failed")

	// ErrAlreadyStarted 进度线程已启动
	ErrAlreadyStarted = errors.New("progress thread already started")
)

// Progresser 推进进行中的传输操作
type Progresser interface {
	Progress()
}

// Engine 进度引擎
type Engine struct {
	transport Progresser
	clock     clock.Clock

	delay atomic.Int64
	stop  atomic.Bool
	polls atomic.Uint64

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 设置休眠使用的时钟
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithDelay 设置初始休眠
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay.Store(int64(d))
	}
}

// New 创建进度引擎
func New(t Progresser, opts ...Option) *Engine {
	e := &Engine{
		transport: t,
		clock:     clock.New(),
	}
	e.delay.Store(int64(DefaultDelay))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start 按需启动进度线程
//
// required 为 false 时不创建任何 goroutine。
func (e *Engine) Start(required bool) error {
	if !required {
		log.Debug("progress thread not required")
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.done = make(chan struct{})

	go e.loop(e.done)

	log.Debug("progress thread started", "delay", e.Delay())
	return nil
}

// loop 至少推进一次，之后每次休眠后检查停止标志
func (e *Engine) loop(done chan struct{}) {
	defer close(done)
	for {
		e.transport.Progress()
		e.polls.Add(1)

		e.clock.Sleep(time.Duration(e.delay.Load()))

		if e.stop.Load() {
			return
		}
	}
}

// Stop 设置停止标志并等待进度线程退出
//
// ctx 结束前线程仍未退出时返回 ErrJoinFailed。未启动时是空操作。
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	started, done := e.started, e.done
	e.mu.Unlock()

	if !started {
		return nil
	}

	e.stopOnce.Do(func() {
		e.stop.Store(true)
	})

	select {
	case <-done:
		log.Debug("progress thread stopped", "polls", e.Polls())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrJoinFailed, ctx.Err())
	}
}

// SetDelay 修改休眠时长
//
// 运行中调用同样安全，从下一次休眠开始生效。
func (e *Engine) SetDelay(d time.Duration) {
	e.delay.Store(int64(d))
}

// Delay 返回当前休眠时长
func (e *Engine) Delay() time.Duration {
	return time.Duration(e.delay.Load())
}

// Running 进度线程是否仍在运行
func (e *Engine) Running() bool {
	e.mu.Lock()
	started, done := e.started, e.done
	e.mu.Unlock()

	if !started {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Polls 返回推进调用次数
func (e *Engine) Polls() uint64 {
	return e.polls.Load()
}
