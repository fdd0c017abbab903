// Package filelock provides cross-process exclusive locks backed by OS advisory file locks
// (flock on Unix, LockFileEx on Windows). The kernel drops a lock when its holder exits,
// so a crashed process never leaves a lock behind.
package filelock

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = stderrors.New("lock is held by another holder")

// ErrUnsupported is returned on platforms without advisory file locks.
var ErrUnsupported = stderrors.New("file locks are not supported on this platform")

// Lock is a held exclusive lock. Lock files are left in place after Release; removing them
// would let a waiter lock an unlinked inode while a newcomer locks a fresh file.
type Lock struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// Options controls how Acquire waits for a contended lock.
type Options struct {
	// Timeout bounds the total wait. Zero or negative waits until the context is done.
	Timeout time.Duration
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	// MaxInterval caps the retry delay.
	MaxInterval time.Duration
}

// DefaultOptions returns the options used by the installer.
func DefaultOptions() Options {
	return Options{
		Timeout:         2 * time.Minute,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// TryLock makes a single non-blocking attempt to lock path, creating the file and its
// directory when needed. It returns ErrLocked when the lock is held elsewhere.
func TryLock(path string) (*Lock, error) {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, fmt.Errorf("failed to create lock directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fsutil.FileModeDefault)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := tryLockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{path: path, file: f}, nil
}

// Acquire locks path, retrying with capped exponential backoff while it is contended.
// It returns errors.ErrLockTimeout when opts.Timeout elapses first, and the context's
// error when ctx is done first.
func Acquire(ctx context.Context, path string, opts Options) (*Lock, error) {
	b := backoff.NewExponentialBackOff()
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}
	b.MaxElapsedTime = 0
	if opts.Timeout > 0 {
		b.MaxElapsedTime = opts.Timeout
	}

	var lock *Lock
	op := func() error {
		l, err := TryLock(path)
		if stderrors.Is(err, ErrLocked) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		lock = l
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	switch {
	case err == nil:
		return lock, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case stderrors.Is(err, ErrLocked):
		return nil, errors.Wrapf(errors.ErrLockTimeout, "%s after %s", path, opts.Timeout)
	default:
		return nil, err
	}
}

// WithLock runs fn while holding the lock on path. The lock is released on every return path.
func WithLock(ctx context.Context, path string, opts Options, fn func(ctx context.Context) error) (err error) {
	lock, err := Acquire(ctx, path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(ctx)
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. Calling it more than once is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	uerr := unlockFile(l.file)
	cerr := l.file.Close()
	l.file = nil
	if uerr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, uerr)
	}
	if cerr != nil {
		return fmt.Errorf("close lock file %s: %w", l.path, cerr)
	}
	return nil
}
