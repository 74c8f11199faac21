package sandbox

import (
	"context"
	"sync"

	"go.uber.org/zap"

	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// Pool hands out sandbox boxes with a hard concurrency bound.
// Lease blocks until a box is free; every lease must be released or the
// pool eventually deadlocks all callers.
type Pool struct {
	backend Backend
	slots   chan struct{}

	mu   sync.Mutex
	free []int
}

// NewPool creates a pool over box ids 0..maxBoxes-1.
func NewPool(backend Backend, maxBoxes int) (*Pool, error) {
	if maxBoxes <= 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("maxBoxes must be positive")
	}
	p := &Pool{
		backend: backend,
		slots:   make(chan struct{}, maxBoxes),
		free:    make([]int, 0, maxBoxes),
	}
	for id := 0; id < maxBoxes; id++ {
		p.free = append(p.free, id)
	}
	return p, nil
}

// Backend exposes the underlying sandbox backend for callers that
// drive a leased box directly.
func (p *Pool) Backend() Backend {
	return p.backend
}

// Lease blocks until a box is available, initializes it, and returns it.
// The caller must call Release on the returned lease on every path.
func (p *Pool) Lease(ctx context.Context) (*Lease, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, appErr.Wrap(ctx.Err(), appErr.BoxPoolExhausted)
	}

	p.mu.Lock()
	id := p.free[0]
	p.free = p.free[1:]
	p.mu.Unlock()

	// A stale compartment from a crashed worker would fail init.
	_ = p.backend.Cleanup(ctx, id)

	box, err := p.backend.Init(ctx, id)
	if err != nil {
		p.putBack(id)
		return nil, err
	}

	return &Lease{pool: p, box: box}, nil
}

func (p *Pool) putBack(id int) {
	p.mu.Lock()
	p.free = append(p.free, id)
	p.mu.Unlock()
	<-p.slots
}

// Lease is an exclusive claim on one initialized box.
type Lease struct {
	pool *Pool
	box  *Box

	once sync.Once
}

// Box returns the leased box. Invalid after Release.
func (l *Lease) Box() *Box {
	return l.box
}

// Release cleans the box up and returns it to the pool.
// Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		if err := l.pool.backend.Cleanup(context.Background(), l.box.ID); err != nil {
			logger.Warn(context.Background(), "box cleanup failed on release",
				zap.Int("box_id", l.box.ID), zap.Error(err))
		}
		l.pool.putBack(l.box.ID)
	})
}
