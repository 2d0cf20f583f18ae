// Package caselock serializes manifest mutation for a case directory.
//
// Every operation that rewrites the canonical manifest takes the exclusive
// lock before loading it and holds it until the rewrite lands, so two
// processes registering derivatives against the same case can never silently
// drop each other's updates.
package caselock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"custody/internal/services"
)

// FileName is the lock file kept at the case-directory root. Manifest scans
// and exports skip it.
const FileName = ".custody.lock"

const retryDelay = 50 * time.Millisecond

// Lock holds an exclusive case-directory lock until Unlock is called.
type Lock struct {
	fl *flock.Flock
}

// Acquire blocks until the exclusive lock for caseDir is held or ctx is
// done. The case directory must exist.
func Acquire(ctx context.Context, caseDir string) (*Lock, error) {
	info, err := os.Stat(caseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "caselock", "acquire", caseDir, err)
		}
		return nil, fmt.Errorf("stat case directory: %w", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "caselock", "acquire", caseDir+" is not a directory", nil)
	}

	fl := flock.New(filepath.Join(caseDir, FileName))
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire case lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire case lock: %s", ctx.Err())
	}
	return &Lock{fl: fl}, nil
}

// Unlock releases the lock. Safe to call on a nil lock.
func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}
