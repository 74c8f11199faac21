package sandbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vexoj/internal/sandbox"
)

type fakeBackend struct {
	mu       sync.Mutex
	inits    []int
	cleanups []int
	initErr  error
}

func (f *fakeBackend) Init(ctx context.Context, boxID int) (*sandbox.Box, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.inits = append(f.inits, boxID)
	return &sandbox.Box{ID: boxID, WorkDir: "/tmp", Dir: "/tmp/box"}, nil
}

func (f *fakeBackend) Cleanup(ctx context.Context, boxID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, boxID)
	return nil
}

func (f *fakeBackend) Run(ctx context.Context, box *sandbox.Box, spec sandbox.RunSpec) (*sandbox.Meta, error) {
	return &sandbox.Meta{}, nil
}

func (f *fakeBackend) Start(ctx context.Context, box *sandbox.Box, spec sandbox.RunSpec) (sandbox.Process, error) {
	return nil, errors.New("not supported")
}

func TestPoolLeaseBlocksAtCapacity(t *testing.T) {
	backend := &fakeBackend{}
	pool, err := sandbox.NewPool(backend, 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	ctx := context.Background()
	l1, err := pool.Lease(ctx)
	if err != nil {
		t.Fatalf("lease 1: %v", err)
	}
	l2, err := pool.Lease(ctx)
	if err != nil {
		t.Fatalf("lease 2: %v", err)
	}
	if l1.Box().ID == l2.Box().ID {
		t.Fatalf("both leases got box %d", l1.Box().ID)
	}

	// A third lease must block until one is released.
	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Lease(timeoutCtx); err == nil {
		t.Fatal("expected third lease to fail while pool is full")
	}

	l1.Release()
	l3, err := pool.Lease(ctx)
	if err != nil {
		t.Fatalf("lease after release: %v", err)
	}
	l3.Release()
	l2.Release()
}

func TestPoolLeaseInitFailureReturnsSlot(t *testing.T) {
	backend := &fakeBackend{initErr: errors.New("init failed")}
	pool, err := sandbox.NewPool(backend, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	if _, err := pool.Lease(context.Background()); err == nil {
		t.Fatal("expected lease to fail")
	}

	// The slot must be reusable after a failed init.
	backend.mu.Lock()
	backend.initErr = nil
	backend.mu.Unlock()
	lease, err := pool.Lease(context.Background())
	if err != nil {
		t.Fatalf("lease after failed init: %v", err)
	}
	lease.Release()
}

func TestLeaseReleaseIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	pool, err := sandbox.NewPool(backend, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	lease, err := pool.Lease(context.Background())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	lease.Release()
	lease.Release()

	// A double release must not free a second slot.
	again, err := pool.Lease(context.Background())
	if err != nil {
		t.Fatalf("lease after release: %v", err)
	}
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Lease(timeoutCtx); err == nil {
		t.Fatal("expected lease to fail while box is held")
	}
	again.Release()
}

func TestPoolLeaseCleansBeforeInit(t *testing.T) {
	backend := &fakeBackend{}
	pool, err := sandbox.NewPool(backend, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	lease, err := pool.Lease(context.Background())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	defer lease.Release()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.cleanups) != 1 || backend.cleanups[0] != 0 {
		t.Fatalf("cleanups before init = %v, want [0]", backend.cleanups)
	}
	if len(backend.inits) != 1 {
		t.Fatalf("inits = %v, want one", backend.inits)
	}
}
