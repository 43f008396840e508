package httputil

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreTryAcquire(t *testing.T) {
	s := NewSemaphore(2)

	if !s.TryAcquire() || !s.TryAcquire() {
		t.Fatalf("expected two acquires to succeed")
	}
	if s.TryAcquire() {
		t.Fatalf("third acquire must fail at capacity")
	}
	if s.DroppedCount() != 1 {
		t.Errorf("dropped count = %d, want 1", s.DroppedCount())
	}

	s.Release()
	if !s.TryAcquire() {
		t.Errorf("acquire after release must succeed")
	}
}

func TestSemaphoreAcquireRespectsContext(t *testing.T) {
	s := NewSemaphore(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Errorf("acquire at capacity must fail when context expires")
	}
}

func TestSemaphoreReleaseWithoutAcquire(t *testing.T) {
	s := NewSemaphore(1)
	s.Release() // must not panic or corrupt state
	if !s.TryAcquire() {
		t.Errorf("semaphore corrupted by spurious release")
	}
}
