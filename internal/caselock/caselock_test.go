package caselock_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"custody/internal/caselock"
	"custody/internal/services"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := caselock.Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lock.Path() != filepath.Join(dir, caselock.FileName) {
		t.Fatalf("unexpected lock path: %q", lock.Path())
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	// Re-acquire after release must succeed immediately.
	again, err := caselock.Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	if err := again.Unlock(); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}
}

func TestAcquireMissingCaseDir(t *testing.T) {
	_, err := caselock.Acquire(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()

	held, err := caselock.Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := caselock.Acquire(ctx, dir); err == nil {
		t.Fatal("expected second acquire to fail while lock is held")
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("expected acquire to block until deadline, returned after %v", elapsed)
	}
}

func TestUnlockNilLock(t *testing.T) {
	var lock *caselock.Lock
	if err := lock.Unlock(); err != nil {
		t.Fatalf("nil Unlock: %v", err)
	}
}
