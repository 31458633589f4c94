// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// List is a mutex-guarded dynamic array offering synchronous,
// asynchronous and tracked fire-and-forget mutation variants, with a
// hook per mutation kind.
//
// Forget mutations run on background goroutines and stay registered in
// a per-kind task registry until they complete. Close and the lifetime
// context (see [ListContext]) cancel whatever is still in flight.
//
// Same-kind mutations apply in lock order. A forget mutation issued
// before a direct read is not guaranteed to be visible until its task
// completes.
type List[T comparable] struct {
	mu    sync.RWMutex
	items []T

	lifetime context.Context
	stop     context.CancelFunc
	state    atomix.Uint64 // 0 open, 1 closed

	adds    *taskSet // in-flight AddForget
	ranges  *taskSet // in-flight AddRangeForget
	inserts *taskSet // in-flight InsertForget

	added    hookList[func(T)]
	ranged   hookList[func([]T)]
	inserted hookList[func(int, T)]
	removed  hookList[func(T)]
	cleared  hookList[func()]

	removeTimeout time.Duration
	clearTimeout  time.Duration
}

// NewList creates an empty List.
func NewList[T comparable](opts ...ListOption) *List[T] {
	o := defaultListOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(o.ctx)
	return &List[T]{
		lifetime:      ctx,
		stop:          cancel,
		adds:          newTaskSet(),
		ranges:        newTaskSet(),
		inserts:       newTaskSet(),
		removeTimeout: o.removeTimeout,
		clearTimeout:  o.clearTimeout,
	}
}

func (l *List[T]) isClosed() bool {
	return l.state.LoadAcquire() != 0
}

// guard takes the write lock with the closed check repeated under it.
// On success the caller owns l.mu.
func (l *List[T]) guard() error {
	if l.isClosed() {
		return ErrClosed
	}
	l.mu.Lock()
	if l.isClosed() {
		l.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// notifyAdded and friends dispatch one mutation kind's hook. The
// closed re-check keeps events from firing once Close has begun.
func (l *List[T]) notifyAdded(item T) {
	if l.isClosed() {
		return
	}
	for _, fn := range l.added.snapshot() {
		fn(item)
	}
}

func (l *List[T]) notifyRangeAdded(items []T) {
	if l.isClosed() {
		return
	}
	for _, fn := range l.ranged.snapshot() {
		fn(items)
	}
}

func (l *List[T]) notifyInserted(index int, item T) {
	if l.isClosed() {
		return
	}
	for _, fn := range l.inserted.snapshot() {
		fn(index, item)
	}
}

func (l *List[T]) notifyRemoved(item T) {
	if l.isClosed() {
		return
	}
	for _, fn := range l.removed.snapshot() {
		fn(item)
	}
}

func (l *List[T]) notifyCleared() {
	if l.isClosed() {
		return
	}
	for _, fn := range l.cleared.snapshot() {
		fn()
	}
}

// Add appends item and fires the added hook.
func (l *List[T]) Add(item T) error {
	if err := l.guard(); err != nil {
		return err
	}
	l.items = append(l.items, item)
	l.mu.Unlock()
	l.notifyAdded(item)
	return nil
}

// AddRange appends items in order and fires the range-added hook once
// for the whole batch. An empty batch is a no-op.
func (l *List[T]) AddRange(items ...T) error {
	if len(items) == 0 {
		return nil
	}
	if err := l.guard(); err != nil {
		return err
	}
	l.items = append(l.items, items...)
	l.mu.Unlock()
	l.notifyRangeAdded(items)
	return nil
}

// Insert places item at index, shifting later elements, and fires the
// inserted hook. Index len(list) appends. Returns [ErrOutOfRange] for
// indices outside [0, len].
func (l *List[T]) Insert(index int, item T) error {
	if err := l.guard(); err != nil {
		return err
	}
	if index < 0 || index > len(l.items) {
		l.mu.Unlock()
		return ErrOutOfRange
	}
	l.items = slices.Insert(l.items, index, item)
	l.mu.Unlock()
	l.notifyInserted(index, item)
	return nil
}

// AddAsync runs [List.Add] on a background goroutine and returns its
// handle. ctx is observed before the mutation starts; a mutation
// already holding the lock runs to completion.
func (l *List[T]) AddAsync(ctx context.Context, item T) *Pending {
	return asyncOp(ctx, func() error { return l.Add(item) })
}

// AddRangeAsync runs [List.AddRange] on a background goroutine and
// returns its handle.
func (l *List[T]) AddRangeAsync(ctx context.Context, items ...T) *Pending {
	return asyncOp(ctx, func() error { return l.AddRange(items...) })
}

// InsertAsync runs [List.Insert] on a background goroutine and returns
// its handle.
func (l *List[T]) InsertAsync(ctx context.Context, index int, item T) *Pending {
	return asyncOp(ctx, func() error { return l.Insert(index, item) })
}

// forget launches op under the lifetime context and tracks the task in
// ts until it completes.
func (l *List[T]) forget(ts *taskSet, op func() error) error {
	if l.isClosed() {
		return ErrClosed
	}
	forgetOp(l.lifetime, ts, op)
	return nil
}

// AddForget schedules Add as a tracked fire-and-forget task. The task
// is cancelled by Close or by the lifetime context.
func (l *List[T]) AddForget(item T) error {
	return l.forget(l.adds, func() error { return l.Add(item) })
}

// AddRangeForget schedules AddRange as a tracked fire-and-forget task.
func (l *List[T]) AddRangeForget(items ...T) error {
	return l.forget(l.ranges, func() error { return l.AddRange(items...) })
}

// InsertForget schedules Insert as a tracked fire-and-forget task. An
// out-of-range index surfaces nowhere; the task resolves with the
// error unobserved.
func (l *List[T]) InsertForget(index int, item T) error {
	return l.forget(l.inserts, func() error { return l.Insert(index, item) })
}

// Remove deletes the first occurrence of item and fires the removed
// hook. It retries until removal succeeds, the remove timeout elapses,
// or no forget mutation remains in flight that could still introduce
// the item. Reports whether an element was removed; a timeout is a
// false result, not an error.
func (l *List[T]) Remove(item T) (bool, error) {
	deadline := time.Now().Add(l.removeTimeout)
	backoff := iox.Backoff{}
	for {
		if err := l.guard(); err != nil {
			return false, err
		}
		i := slices.Index(l.items, item)
		if i >= 0 {
			l.items = slices.Delete(l.items, i, i+1)
		}
		// Read the in-flight count while still holding the lock: a
		// forget task that applied before our acquisition is visible
		// to the index scan above, and one that has not applied yet
		// is still tracked.
		idle := l.adds.size()+l.ranges.size()+l.inserts.size() == 0
		l.mu.Unlock()
		if i >= 0 {
			l.notifyRemoved(item)
			return true, nil
		}
		if idle {
			return false, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		backoff.Wait()
	}
}

// RemoveAt waits for in-flight forget mutations to settle, bounded by
// the clear timeout, then deletes the element at index and fires the
// removed hook.
func (l *List[T]) RemoveAt(index int) error {
	if l.isClosed() {
		return ErrClosed
	}
	drainedAll(l.clearTimeout, l.adds, l.ranges, l.inserts)
	if err := l.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(l.items) {
		l.mu.Unlock()
		return ErrOutOfRange
	}
	item := l.items[index]
	l.items = slices.Delete(l.items, index, index+1)
	l.mu.Unlock()
	l.notifyRemoved(item)
	return nil
}

// Clear waits for in-flight forget mutations to settle, bounded by the
// clear timeout, then empties the list and fires the cleared hook. The
// clear proceeds even when the wait times out.
func (l *List[T]) Clear() error {
	if l.isClosed() {
		return ErrClosed
	}
	drainedAll(l.clearTimeout, l.adds, l.ranges, l.inserts)
	if err := l.guard(); err != nil {
		return err
	}
	l.items = nil
	l.mu.Unlock()
	l.notifyCleared()
	return nil
}

// Get returns the element at index.
func (l *List[T]) Get(index int) (T, error) {
	var zero T
	if l.isClosed() {
		return zero, ErrClosed
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.items) {
		return zero, ErrOutOfRange
	}
	return l.items[index], nil
}

// Set schedules item for position index via [List.InsertForget].
// Assignment is asynchronous and inserts rather than overwrites: the
// element is not visible until the tracked task applies.
func (l *List[T]) Set(index int, item T) error {
	return l.InsertForget(index, item)
}

// Len reports the number of elements. A closed list reports 0.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Contains reports whether item is present.
func (l *List[T]) Contains(item T) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.items, item)
}

// IndexOf returns the index of the first occurrence of item. The
// second result reports whether item was found; a missing item yields
// (0, false).
func (l *List[T]) IndexOf(item T) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := slices.Index(l.items, item); i >= 0 {
		return i, true
	}
	return 0, false
}

// CopyTo copies elements into dst, stopping at the shorter of the two,
// and reports the number copied.
func (l *List[T]) CopyTo(dst []T) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copy(dst, l.items)
}

// Snapshot returns a copy of the backing sequence.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// All returns an iterator over a point-in-time snapshot. The lock is
// not held while the caller consumes the sequence.
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.Snapshot())
}

// OnAdded registers fn to run after each Add. A nil fn is ignored.
func (l *List[T]) OnAdded(fn func(T)) {
	if fn == nil || l.isClosed() {
		return
	}
	l.added.add(fn)
}

// OnRangeAdded registers fn to run after each AddRange batch.
// A nil fn is ignored.
func (l *List[T]) OnRangeAdded(fn func([]T)) {
	if fn == nil || l.isClosed() {
		return
	}
	l.ranged.add(fn)
}

// OnInserted registers fn to run after each Insert. A nil fn is
// ignored.
func (l *List[T]) OnInserted(fn func(int, T)) {
	if fn == nil || l.isClosed() {
		return
	}
	l.inserted.add(fn)
}

// OnRemoved registers fn to run after each successful Remove or
// RemoveAt. A nil fn is ignored.
func (l *List[T]) OnRemoved(fn func(T)) {
	if fn == nil || l.isClosed() {
		return
	}
	l.removed.add(fn)
}

// OnCleared registers fn to run after each Clear. A nil fn is ignored.
func (l *List[T]) OnCleared(fn func()) {
	if fn == nil || l.isClosed() {
		return
	}
	l.cleared.add(fn)
}

// Close cancels every in-flight forget task, clears the backing
// sequence and hooks, and marks the list unusable. Further calls
// return [ErrClosed]. Close is idempotent.
func (l *List[T]) Close() error {
	if !l.state.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	l.stop()
	l.adds.cancelAll()
	l.ranges.cancelAll()
	l.inserts.cancelAll()
	drainedAll(l.clearTimeout, l.adds, l.ranges, l.inserts)
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
	l.added.clear()
	l.ranged.clear()
	l.inserted.clear()
	l.removed.clear()
	l.cleared.clear()
	return nil
}
