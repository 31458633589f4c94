// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"io"
	"reflect"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// cellSpinAttempts is the CPU-spin phase length before lock waiters
// fall back to sleeping backoff.
const cellSpinAttempts = 32

// Cell is a single mutable slot guarded by a spin lock with bounded
// wait. It is the minimal primitive of the package: one value, swapped
// safely, with timeouts instead of unbounded blocking.
//
// A Cell created with [CellUnguarded] never locks; every access
// succeeds immediately. For types whose access is already safe or
// callers that accept stale reads.
type Cell[T any] struct {
	value     atomic.Pointer[T]
	lock      atomix.Uint64 // 0 free, 1 held
	done      atomix.Uint64 // Close happened
	timeout   time.Duration
	unguarded bool
}

// NewCell creates a Cell holding value.
func NewCell[T any](value T, opts ...CellOption) *Cell[T] {
	o := defaultCellOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cell[T]{timeout: o.timeout, unguarded: o.unguarded}
	c.value.Store(&value)
	return c
}

// tryAcquire attempts to take the lock word once.
func (c *Cell[T]) tryAcquire() bool {
	if c.unguarded {
		return true
	}
	return c.lock.CompareAndSwapAcqRel(0, 1)
}

// acquire takes the lock word, spinning briefly then sleeping with
// backoff until it succeeds or the timeout elapses.
func (c *Cell[T]) acquire() bool {
	if c.unguarded {
		return true
	}
	sw := spin.Wait{}
	for range cellSpinAttempts {
		if c.lock.CompareAndSwapAcqRel(0, 1) {
			return true
		}
		sw.Once()
	}
	deadline := time.Now().Add(c.timeout)
	backoff := iox.Backoff{}
	for {
		if c.lock.CompareAndSwapAcqRel(0, 1) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		backoff.Wait()
	}
}

func (c *Cell[T]) release() {
	if c.unguarded {
		return
	}
	c.lock.StoreRelease(0)
}

// Set stores value under the lock, waiting up to the configured
// timeout for acquisition. Reports whether the write happened; a
// timed out Set leaves the previous value in place.
func (c *Cell[T]) Set(value T) bool {
	if !c.acquire() {
		return false
	}
	c.value.Store(&value)
	c.release()
	return true
}

// SetForget stores value immediately if the lock is free, otherwise
// hands the blocking [Cell.Set] to a background goroutine and returns.
// A background write that times out is dropped.
func (c *Cell[T]) SetForget(value T) {
	if c.tryAcquire() {
		c.value.Store(&value)
		c.release()
		return
	}
	go c.Set(value)
}

// Get reads the value under the lock, waiting up to the configured
// timeout for acquisition. On timeout it reports false and returns the
// current value unguarded.
func (c *Cell[T]) Get() (T, bool) {
	if !c.acquire() {
		return c.Current(), false
	}
	v := *c.value.Load()
	c.release()
	return v, true
}

// Current reads the value without locking. A concurrent Set may be
// mid-swap; the returned value is whichever store is visible.
func (c *Cell[T]) Current() T {
	return *c.value.Load()
}

// Equal reports whether the held value equals other.
//
// Resolution order: the value's own Equal method when present, then Go
// equality when the dynamic type is comparable. Returns
// [ErrNotComparable] when neither applies.
func (c *Cell[T]) Equal(other T) (bool, error) {
	v, _ := c.Get()
	if eq, ok := any(v).(interface{ Equal(T) bool }); ok {
		return eq.Equal(other), nil
	}
	if t := reflect.TypeOf(v); t == nil || t.Comparable() {
		return any(v) == any(other), nil
	}
	return false, ErrNotComparable
}

// Compare orders the held value against other via the value's own
// Compare method. Unlike [Cell.Equal] there is no language-level
// fallback; ordering exists only as a type capability. Returns
// [ErrNotComparable] when the method is absent.
func (c *Cell[T]) Compare(other T) (int, error) {
	v, _ := c.Get()
	if cp, ok := any(v).(interface{ Compare(T) int }); ok {
		return cp.Compare(other), nil
	}
	return 0, ErrNotComparable
}

// Close releases the held value: when it implements [io.Closer] its
// Close is invoked once. Close failures are swallowed; teardown is
// best effort. The cell itself remains readable afterwards.
func (c *Cell[T]) Close() error {
	if !c.done.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	if closer, ok := any(c.Current()).(io.Closer); ok {
		_ = closer.Close()
	}
	return nil
}
