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
	"code.hybscloud.com/lfq"
)

// insertion pairs an index with its item for the insert queue.
type insertion[T any] struct {
	index int
	item  T
}

// lane pairs one operation queue's worker flag with its pending count.
// The count is raised before the enqueue and lowered after the apply,
// so pending == 0 with an idle flag means the lane has fully settled.
type lane struct {
	active  atomix.Uint64 // 0 idle, 1 draining
	pending atomix.Int64  // posted but not yet applied
}

// busy reports whether the lane has a running worker or unapplied
// operations.
func (ln *lane) busy() bool {
	return ln.active.LoadAcquire() != 0 || ln.pending.Load() != 0
}

// QueuedList is a dynamic array whose mutations travel through
// per-operation-kind queues, each drained by a lazily spawned single
// worker goroutine. Enqueueing never takes the list lock; applying
// does.
//
// Operations of the same kind apply in FIFO order. Ordering across
// kinds is not guaranteed: an Add and a Remove posted concurrently may
// apply either way around. Reads go straight to the backing array and
// may not yet reflect queued mutations; call [QueuedList.Wait] first
// when read-after-write visibility matters.
type QueuedList[T comparable] struct {
	mu    sync.RWMutex
	items []T

	addQ      *lfq.MPSC[T]
	insertQ   *lfq.MPSC[insertion[T]]
	removeQ   *lfq.MPSC[T]
	removeAtQ *lfq.MPSC[int]

	addLane   lane
	insLane   lane
	remLane   lane
	remAtLane lane

	state atomix.Uint64 // 0 open, 1 closed

	removeTimeout time.Duration
	lookupTimeout time.Duration
}

// NewQueuedList creates an empty QueuedList.
func NewQueuedList[T comparable](opts ...QueuedListOption) *QueuedList[T] {
	o := defaultQueuedListOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &QueuedList[T]{
		addQ:          lfq.NewMPSC[T](o.capacity),
		insertQ:       lfq.NewMPSC[insertion[T]](o.capacity),
		removeQ:       lfq.NewMPSC[T](o.capacity),
		removeAtQ:     lfq.NewMPSC[int](o.capacity),
		removeTimeout: o.removeTimeout,
		lookupTimeout: o.lookupTimeout,
	}
}

func (l *QueuedList[T]) isClosed() bool {
	return l.state.LoadAcquire() != 0
}

// post accounts one operation on ln, then enqueues it, retrying with
// backoff while the queue is full. Raising pending first means a
// retiring worker cannot miss the item.
func post[E any](q *lfq.MPSC[E], ln *lane, closed func() bool, e E) error {
	ln.pending.Add(1)
	backoff := iox.Backoff{}
	for {
		err := q.Enqueue(&e)
		if err == nil {
			return nil
		}
		if !IsWouldBlock(err) {
			ln.pending.Add(-1)
			return err
		}
		if closed() {
			ln.pending.Add(-1)
			return ErrClosed
		}
		backoff.Wait()
	}
}

// drainLane runs the single consumer for one operation kind. On an
// empty queue with nothing pending the worker retires by releasing the
// flag, then re-reads pending and re-claims the flag if a producer
// posted during retirement. Either the worker resumes or the producer's
// own spawn attempt finds the flag free; no item is stranded. The
// release goes through a read-modify-write so the re-read cannot be
// satisfied ahead of it. After close the apply functions drop their
// items and this same loop becomes the discard path.
func drainLane[E any](q *lfq.MPSC[E], ln *lane, apply func(E)) {
	backoff := iox.Backoff{}
	for {
		e, err := q.Dequeue()
		if err == nil {
			apply(e)
			ln.pending.Add(-1)
			backoff.Reset()
			continue
		}
		if ln.pending.Load() > 0 {
			// Posted but not yet visible in the queue.
			backoff.Wait()
			continue
		}
		ln.active.CompareAndSwapAcqRel(1, 0)
		if ln.pending.Load() > 0 && ln.active.CompareAndSwapAcqRel(0, 1) {
			backoff.Reset()
			continue
		}
		return
	}
}

// spawn starts the lane worker unless one is already active.
func (l *QueuedList[T]) spawn(ln *lane, drain func()) {
	if ln.active.CompareAndSwapAcqRel(0, 1) {
		go drain()
	}
}

func (l *QueuedList[T]) drainAdds() {
	drainLane(l.addQ, &l.addLane, l.applyAdd)
}

func (l *QueuedList[T]) drainInserts() {
	drainLane(l.insertQ, &l.insLane, l.applyInsert)
}

func (l *QueuedList[T]) drainRemoves() {
	drainLane(l.removeQ, &l.remLane, l.removeOne)
}

func (l *QueuedList[T]) drainRemoveAts() {
	drainLane(l.removeAtQ, &l.remAtLane, l.applyRemoveAt)
}

func (l *QueuedList[T]) applyAdd(item T) {
	l.mu.Lock()
	if !l.isClosed() {
		l.items = append(l.items, item)
	}
	l.mu.Unlock()
}

func (l *QueuedList[T]) applyInsert(ins insertion[T]) {
	l.mu.Lock()
	if !l.isClosed() {
		i := min(max(ins.index, 0), len(l.items))
		l.items = slices.Insert(l.items, i, ins.item)
	}
	l.mu.Unlock()
}

func (l *QueuedList[T]) applyRemoveAt(index int) {
	l.mu.Lock()
	if !l.isClosed() && index >= 0 && index < len(l.items) {
		l.items = slices.Delete(l.items, index, index+1)
	}
	l.mu.Unlock()
}

// removeOne retries removal of item until it is gone or the per-item
// retry budget elapses. The budget covers removals posted ahead of the
// add that introduces the item; an item that never appears is dropped.
func (l *QueuedList[T]) removeOne(item T) {
	deadline := time.Now().Add(l.removeTimeout)
	backoff := iox.Backoff{}
	for {
		l.mu.Lock()
		if l.isClosed() {
			l.mu.Unlock()
			return
		}
		if i := slices.Index(l.items, item); i >= 0 {
			l.items = slices.Delete(l.items, i, i+1)
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
		if time.Now().After(deadline) {
			return
		}
		backoff.Wait()
	}
}

// Add posts item to the add queue. The append becomes visible once the
// add worker applies it.
func (l *QueuedList[T]) Add(item T) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := post(l.addQ, &l.addLane, l.isClosed, item); err != nil {
		return err
	}
	l.spawn(&l.addLane, l.drainAdds)
	return nil
}

// Insert posts an insertion of item at index. The index is clamped to
// the backing bounds at apply time; strict validation is meaningless
// once other queued mutations may apply first.
func (l *QueuedList[T]) Insert(index int, item T) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := post(l.insertQ, &l.insLane, l.isClosed, insertion[T]{index: index, item: item}); err != nil {
		return err
	}
	l.spawn(&l.insLane, l.drainInserts)
	return nil
}

// Remove posts removal of the first occurrence of item. A nil return
// means accepted, not removed: an item absent for the whole retry
// budget is dropped silently.
func (l *QueuedList[T]) Remove(item T) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := post(l.removeQ, &l.remLane, l.isClosed, item); err != nil {
		return err
	}
	l.spawn(&l.remLane, l.drainRemoves)
	return nil
}

// RemoveAt posts removal of the element at index. Indices out of range
// at apply time are dropped.
func (l *QueuedList[T]) RemoveAt(index int) error {
	if l.isClosed() {
		return ErrClosed
	}
	if err := post(l.removeAtQ, &l.remAtLane, l.isClosed, index); err != nil {
		return err
	}
	l.spawn(&l.remAtLane, l.drainRemoveAts)
	return nil
}

// busy reports whether any lane has a running worker or unapplied
// operations.
func (l *QueuedList[T]) busy() bool {
	return l.addLane.busy() || l.insLane.busy() || l.remLane.busy() || l.remAtLane.busy()
}

// IndexOf scans for item, retrying with backoff while queued mutations
// are still in flight, up to the lookup timeout. The second result
// reports whether item was found; a miss yields (0, false). With idle
// lanes a miss returns immediately.
func (l *QueuedList[T]) IndexOf(item T) (int, bool) {
	deadline := time.Now().Add(l.lookupTimeout)
	backoff := iox.Backoff{}
	for {
		if l.isClosed() {
			return 0, false
		}
		l.mu.RLock()
		i := slices.Index(l.items, item)
		l.mu.RUnlock()
		if i >= 0 {
			return i, true
		}
		if !l.busy() {
			return 0, false
		}
		if time.Now().After(deadline) {
			return 0, false
		}
		backoff.Wait()
	}
}

// Wait blocks until every lane has settled: all posted operations
// applied and all workers retired. Returns ctx's error if ctx is done
// first.
func (l *QueuedList[T]) Wait(ctx context.Context) error {
	backoff := iox.Backoff{}
	for l.busy() {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff.Wait()
	}
	return nil
}

// Len reports the applied length. Queued but undrained mutations are
// not reflected.
func (l *QueuedList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Get returns the element at index.
func (l *QueuedList[T]) Get(index int) (T, error) {
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

// Contains reports whether item is currently applied. Unlike
// [QueuedList.IndexOf] it does not wait for in-flight mutations.
func (l *QueuedList[T]) Contains(item T) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.items, item)
}

// Snapshot returns a copy of the applied sequence.
func (l *QueuedList[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// All returns an iterator over a point-in-time snapshot. The lock is
// not held while the caller consumes the sequence.
func (l *QueuedList[T]) All() iter.Seq2[int, T] {
	return slices.All(l.Snapshot())
}

// Close marks the list closed and clears the backing sequence. Posted
// but unapplied operations are discarded: workers drain their queues
// against the closed list, which drops every item, then retire.
// Close is idempotent.
func (l *QueuedList[T]) Close() error {
	if !l.state.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	// Drain only marks the queues; consuming stays with the lane
	// workers, the single consumers.
	l.addQ.Drain()
	l.insertQ.Drain()
	l.removeQ.Drain()
	l.removeAtQ.Drain()
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
	return nil
}
