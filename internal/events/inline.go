package events

import (
	"context"
	"log/slog"
	"sync"
)

// Inline hands changes straight to an in-process handler. In async mode every
// change runs on its own goroutine, detached from the caller's cancellation,
// the way platform triggers run after the write that caused them.
type Inline struct {
	async   bool
	logger  *slog.Logger
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup
}

func NewInline(async bool, logger *slog.Logger) *Inline {
	return &Inline{async: async, logger: logger}
}

// Attach sets the handler. Changes published before a handler is attached
// are dropped.
func (p *Inline) Attach(h Handler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *Inline) Publish(ctx context.Context, change Change) error {
	p.mu.RLock()
	h := p.handler
	p.mu.RUnlock()
	if h == nil {
		p.logger.Warn("dropping change, no handler attached",
			"collection", change.Collection, "documentId", change.ID)
		return nil
	}

	if !p.async {
		return h.Handle(ctx, change)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := h.Handle(context.WithoutCancel(ctx), change); err != nil {
			p.logger.Error("change handler failed",
				"collection", change.Collection, "documentId", change.ID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight async change has been handled
func (p *Inline) Wait() {
	p.wg.Wait()
}
