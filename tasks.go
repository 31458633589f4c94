// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// Pending is the handle for one asynchronous operation.
//
// The zero value is not usable; handles are returned by the *Async and
// *Forget entry points. A handle resolves exactly once.
type Pending struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error // written once before done is closed
}

func newPending(cancel context.CancelFunc) *Pending {
	return &Pending{done: make(chan struct{}), cancel: cancel}
}

// Done returns a channel that is closed when the operation has finished,
// whether it succeeded, failed or was cancelled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the operation result. It is nil before completion; after
// Done is closed it reports the final outcome, [context.Canceled] if the
// operation was cancelled.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Cancel requests cancellation. Safe to call at any time, including
// after completion.
func (p *Pending) Cancel() {
	p.cancel()
}

// Wait blocks until the operation finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish resolves the handle. Called exactly once per handle.
func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// asyncOp runs op on a background goroutine behind a cancellable
// handle. ctx is observed before op starts; an op that already began
// runs to completion.
func asyncOp(ctx context.Context, op func() error) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := newPending(cancel)
	go func() {
		defer cancel()
		if err := ctx.Err(); err != nil {
			p.finish(err)
			return
		}
		p.finish(op())
	}()
	return p
}

// forgetOp launches op like asyncOp and keeps the handle registered in
// ts until it resolves.
func forgetOp(parent context.Context, ts *taskSet, op func() error) {
	ctx, cancel := context.WithCancel(parent)
	p := newPending(cancel)
	release := ts.track(p)
	go func() {
		defer cancel()
		defer release()
		if err := ctx.Err(); err != nil {
			p.finish(err)
			return
		}
		p.finish(op())
	}()
}

// taskSet tracks in-flight asynchronous operations by id. Completed
// tasks deregister themselves; Close paths cancel whatever remains.
type taskSet struct {
	mu    sync.Mutex
	tasks map[uint64]*Pending
	next  atomix.Uint64
}

func newTaskSet() *taskSet {
	return &taskSet{tasks: make(map[uint64]*Pending)}
}

// track registers p and returns the callback that deregisters it on
// completion. A handle observed already resolved is not registered.
func (s *taskSet) track(p *Pending) (release func()) {
	id := s.next.AddAcqRel(1)
	select {
	case <-p.done:
		return func() {}
	default:
	}
	s.mu.Lock()
	s.tasks[id] = p
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.tasks, id)
		s.mu.Unlock()
	}
}

// size reports the number of tasks currently in flight.
func (s *taskSet) size() int {
	s.mu.Lock()
	n := len(s.tasks)
	s.mu.Unlock()
	return n
}

// cancelAll cancels every tracked task. Each task still resolves on its
// own goroutine and deregisters itself; pair with drained to observe
// that.
func (s *taskSet) cancelAll() {
	s.mu.Lock()
	pending := make([]*Pending, 0, len(s.tasks))
	for _, p := range s.tasks {
		pending = append(pending, p)
	}
	s.mu.Unlock()
	for _, p := range pending {
		p.Cancel()
	}
}

// drained waits until the set empties or timeout elapses.
// Reports whether the set emptied in time.
func (s *taskSet) drained(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for s.size() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		backoff.Wait()
	}
	return true
}

// drainedAll reports whether every set in sets emptied before timeout.
// The deadline is shared across sets.
func drainedAll(timeout time.Duration, sets ...*taskSet) bool {
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for {
		busy := 0
		for _, s := range sets {
			busy += s.size()
		}
		if busy == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		backoff.Wait()
	}
}
