// Package worker 提供有界的后台任务池。
//
// 任务投递从不阻塞调用方：队列已满或池已关闭时任务被丢弃并记录日志，
// 适合审计这类尽力而为、不能拖慢请求的工作。
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/asistros/pkg/logger"
	"go.uber.org/zap"
)

// Task 后台任务
type Task func(ctx context.Context)

// Pool 固定数量的 worker 加有界队列
type Pool struct {
	name    string
	tasks   chan Task
	log     *zap.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option 任务池选项
type Option func(*Pool)

// WithLogger 指定日志
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		p.log = l
	}
}

// New 创建并启动任务池
func New(name string, workers, queueSize int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:   name,
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.WithFields(zap.String("pool", name))
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

// Submit 投递任务，返回是否被接收
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop("pool closed")
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		p.drop("queue full")
		return false
	}
}

func (p *Pool) drop(reason string) {
	n := p.dropped.Add(1)
	p.log.Warn("后台任务被丢弃", zap.String("reason", reason), zap.Int64("dropped", n))
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.execute(task)
	}
}

func (p *Pool) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("后台任务 panic", zap.Any("panic", r))
		}
	}()
	task(p.ctx)
}

// Dropped 累计丢弃的任务数
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Shutdown 停止接收任务并等待队列排空
// ctx 到期时取消仍在执行的任务并返回 ctx 的错误
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
