package filelock

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	liberrors "github.com/glorpus-work/librestore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(timeout time.Duration) Options {
	return Options{Timeout: timeout, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "a.lock")

	first, err := TryLock(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	_, err = TryLock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release(), "second release is a no-op")

	second, err := TryLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquire_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	held, err := TryLock(path)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	start := time.Now()
	_, err = Acquire(context.Background(), path, fastOptions(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, liberrors.ErrLockTimeout)
	assert.False(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAcquire_Canceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	held, err := TryLock(path)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = Acquire(ctx, path, fastOptions(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, liberrors.ErrLockTimeout)
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	held, err := TryLock(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = held.Release()
	}()

	lock, err := Acquire(context.Background(), path, fastOptions(5*time.Second))
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestWithLock_MutualExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), path, fastOptions(10*time.Second), func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	boom := errors.New("boom")

	err := WithLock(context.Background(), path, fastOptions(time.Second), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	lock, err := TryLock(path)
	require.NoError(t, err, "lock must be free after fn failed")
	require.NoError(t, lock.Release())
}
