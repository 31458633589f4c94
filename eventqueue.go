// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"context"
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Background-dequeue unit states. A stopped unit returns to idle and
// can be started again; every run is a fresh goroutine.
const (
	unitIdle    uint64 = 0
	unitRunning uint64 = 1
)

// EventQueue is a FIFO queue with enqueued, dequeued and error hooks,
// plus an independently start/stoppable background unit that
// continuously drains the queue and raises dequeued notifications.
//
// The item counter moves exactly once per successful enqueue and
// dequeue; [EventQueue.Wait] blocks on it reaching zero. Subscriber
// panics never propagate to the enqueueing or dequeueing caller: they
// are wrapped and routed to the error hook so the remaining items in a
// batch still process.
type EventQueue[T any] struct {
	queue *lfq.MPMC[T]
	count atomix.Int64

	unitState atomix.Uint64 // unitIdle or unitRunning
	unitMu    sync.Mutex    // serializes unit transitions
	unitStop  context.CancelFunc
	unitDone  chan struct{}

	enqueued hookList[func(T)]
	dequeued hookList[func(T)]
	failed   hookList[func(error)]

	state atomix.Uint64 // 0 open, 1 closed
}

// NewEventQueue creates an EventQueue. The initial items are enqueued
// synchronously before the constructor returns, in order.
func NewEventQueue[T any](initial []T, opts ...EventQueueOption) *EventQueue[T] {
	o := defaultEventQueueOptions()
	for _, opt := range opts {
		opt(&o)
	}
	capacity := o.capacity
	if len(initial) > capacity {
		capacity = len(initial)
	}
	q := &EventQueue[T]{queue: lfq.NewMPMC[T](capacity)}
	for i := range initial {
		_ = q.Enqueue(initial[i])
	}
	return q
}

func (q *EventQueue[T]) isClosed() bool {
	return q.state.LoadAcquire() != 0
}

// invoke runs one subscriber with panic containment. A recovered panic
// is wrapped and dispatched to the error hook; error subscribers that
// panic themselves are swallowed.
func (q *EventQueue[T]) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("syncx: event handler panic: %v", r)
			for _, h := range q.failed.snapshot() {
				func() {
					defer func() { _ = recover() }()
					h(err)
				}()
			}
		}
	}()
	fn()
}

func (q *EventQueue[T]) notifyEnqueued(item T) {
	for _, fn := range q.enqueued.snapshot() {
		q.invoke(func() { fn(item) })
	}
}

func (q *EventQueue[T]) notifyDequeued(item T) {
	for _, fn := range q.dequeued.snapshot() {
		q.invoke(func() { fn(item) })
	}
}

// Enqueue pushes item, raises the counter and the enqueued hook.
// Blocks with backoff while the queue is full.
func (q *EventQueue[T]) Enqueue(item T) error {
	if q.isClosed() {
		return ErrClosed
	}
	backoff := iox.Backoff{}
	for {
		err := q.queue.Enqueue(&item)
		if err == nil {
			break
		}
		if !IsWouldBlock(err) {
			return err
		}
		if q.isClosed() {
			return ErrClosed
		}
		backoff.Wait()
	}
	q.count.Add(1)
	q.notifyEnqueued(item)
	return nil
}

// Dequeue pops one item if available, lowers the counter and raises
// the dequeued hook. The second result reports whether an item was
// popped.
func (q *EventQueue[T]) Dequeue() (T, bool) {
	var zero T
	if q.isClosed() {
		return zero, false
	}
	item, err := q.queue.Dequeue()
	if err != nil {
		return zero, false
	}
	q.count.Add(-1)
	q.notifyDequeued(item)
	return item, true
}

// DequeueAll pops until the queue is empty, raising the dequeued hook
// per item, and reports the number drained.
func (q *EventQueue[T]) DequeueAll() int {
	n := 0
	for {
		if _, ok := q.Dequeue(); !ok {
			return n
		}
		n++
	}
}

// EnqueueAsync runs [EventQueue.Enqueue] on a background goroutine and
// returns its handle.
func (q *EventQueue[T]) EnqueueAsync(ctx context.Context, item T) *Pending {
	return asyncOp(ctx, func() error { return q.Enqueue(item) })
}

// DequeueAsync runs [EventQueue.Dequeue] on a background goroutine.
// The handle resolves with [ErrWouldBlock] when the queue was empty.
func (q *EventQueue[T]) DequeueAsync(ctx context.Context) *Pending {
	return asyncOp(ctx, func() error {
		if _, ok := q.Dequeue(); !ok {
			return ErrWouldBlock
		}
		return nil
	})
}

// Len reports the item count.
func (q *EventQueue[T]) Len() int {
	return int(q.count.Load())
}

// runUnit is the background-dequeue loop: while the counter shows
// items, pop one; otherwise back off. Exits when cancelled.
func (q *EventQueue[T]) runUnit(ctx context.Context, done chan struct{}) {
	defer close(done)
	backoff := iox.Backoff{}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if q.count.Load() > 0 {
			if _, ok := q.Dequeue(); ok {
				backoff.Reset()
				continue
			}
		}
		backoff.Wait()
	}
}

// StartEventDequeue starts the background-dequeue unit. Returns
// [ErrNoHandler] when no dequeued subscriber is attached, [ErrRunning]
// when the unit is already running. A previously stopped unit starts
// again with a fresh run.
func (q *EventQueue[T]) StartEventDequeue() error {
	q.unitMu.Lock()
	defer q.unitMu.Unlock()
	// Close stops the unit while holding unitMu, so a closed check
	// under the same mutex cannot interleave with that stop: a start
	// racing Close either runs first and hands Close a unit to stop,
	// or observes closed here.
	if q.isClosed() {
		return ErrClosed
	}
	if q.unitState.LoadAcquire() == unitRunning {
		return ErrRunning
	}
	if q.dequeued.size() == 0 {
		return ErrNoHandler
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	q.unitStop = cancel
	q.unitDone = done
	q.unitState.StoreRelease(unitRunning)
	go q.runUnit(ctx, done)
	return nil
}

// StopEventDequeue cancels the background-dequeue unit and waits for
// its goroutine to exit. Returns [ErrNotRunning] when the unit is not
// running. A subscriber blocked mid-dispatch delays the return.
func (q *EventQueue[T]) StopEventDequeue() error {
	q.unitMu.Lock()
	defer q.unitMu.Unlock()
	return q.stopUnit()
}

// stopUnit requires unitMu held.
func (q *EventQueue[T]) stopUnit() error {
	if q.unitState.LoadAcquire() != unitRunning {
		return ErrNotRunning
	}
	q.unitStop()
	<-q.unitDone
	q.unitState.StoreRelease(unitIdle)
	return nil
}

// Wait blocks until the queue is empty and the counter reaches zero,
// or ctx is done.
func (q *EventQueue[T]) Wait(ctx context.Context) error {
	backoff := iox.Backoff{}
	for q.count.Load() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff.Wait()
	}
	return nil
}

// OnEnqueued registers fn to run after each successful enqueue. A nil
// fn is ignored.
func (q *EventQueue[T]) OnEnqueued(fn func(T)) {
	if fn == nil || q.isClosed() {
		return
	}
	q.enqueued.add(fn)
}

// OnDequeued registers fn to run after each successful dequeue,
// including those performed by the background unit. At least one
// dequeued subscriber must exist before StartEventDequeue. A nil fn is
// ignored.
func (q *EventQueue[T]) OnDequeued(fn func(T)) {
	if fn == nil || q.isClosed() {
		return
	}
	q.dequeued.add(fn)
}

// OnError registers fn to receive contained subscriber panics. A nil
// fn is ignored.
func (q *EventQueue[T]) OnError(fn func(error)) {
	if fn == nil || q.isClosed() {
		return
	}
	q.failed.add(fn)
}

// Close stops the background unit if running, discards the remaining
// items and clears hooks. Discarded items raise no dequeued events.
// Close is idempotent.
func (q *EventQueue[T]) Close() error {
	if !q.state.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	q.unitMu.Lock()
	_ = q.stopUnit()
	q.unitMu.Unlock()
	q.queue.Drain()
	for {
		if _, err := q.queue.Dequeue(); err != nil {
			break
		}
		q.count.Add(-1)
	}
	q.enqueued.clear()
	q.dequeued.clear()
	q.failed.clear()
	return nil
}
