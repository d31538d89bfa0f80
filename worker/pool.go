// Package worker 提供有上限的背景工作池，用於下單後的非同步後續工作。
//
// Submit不會阻塞：佇列已滿時回傳ErrPoolFull，由呼叫端決定丟棄或重試。
// SubmitWait會等到佇列有空位或ctx結束，供不可遺漏工作的批次流程使用。
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrPoolFull   = errors.New("worker: pool is full")
	ErrPoolClosed = errors.New("worker: pool is closed")
)

type Pool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
	once   sync.Once
	log    *slog.Logger
}

// NewPool 建立size個worker，佇列容量為worker數的兩倍
func NewPool(size int, log *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Pool{
		tasks: make(chan func(), size*2),
		log:   log,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait 佇列已滿時等待空位，ctx結束時回傳ctx的錯誤
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown 停止接收新工作並等待已排入的工作完成，可重複呼叫
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.safeRun(task)
	}
}

func (p *Pool) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("背景工作發生panic", "panic", r)
		}
	}()
	task()
}
