// Package poll owns the scheduled-task handle for view polling. The
// invariant it enforces: at most one poll task is ever active, and starting
// a new one cancels the previous task before the next tick can fire.
package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one poll body. It must respect ctx cancellation; the poller never
// kills a task mid-run, it only stops scheduling it.
type Task func(ctx context.Context)

type Poller struct {
	log *zap.Logger

	mu     sync.Mutex
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{log: log}
}

// Start replaces any running task with a new one. The task runs once
// immediately, then on every interval tick, until Stop or a later Start.
func (p *Poller) Start(ctx context.Context, name string, interval time.Duration, task Task) {
	p.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.name = name
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.log.Debug("poll task started", zap.String("task", name), zap.Duration("interval", interval))

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		task(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				task(runCtx)
			}
		}
	}()
}

// Stop cancels the running task, if any, and waits for it to exit. Safe to
// call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	name := p.name
	p.cancel = nil
	p.done = nil
	p.name = ""
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Debug("poll task stopped", zap.String("task", name))
}

// Active reports whether a task is currently scheduled.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// ActiveName returns the running task's name, or empty.
func (p *Poller) ActiveName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}
