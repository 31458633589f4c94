// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/syncx"
)

// =============================================================================
// Pending - Handle Mechanics
// =============================================================================

func TestPendingResolved(t *testing.T) {
	l := syncx.NewList[int]()
	defer l.Close()

	p := l.AddAsync(context.Background(), 1)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Wait returned")
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	// Waiting again on a resolved handle returns immediately.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
}

func TestPendingUnresolvedWhileBlocked(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: lock-free queue transfer uses cross-variable memory ordering")
	}

	// Fill a 2-slot queue so the async enqueue parks on backpressure;
	// its handle stays unresolved until a consumer frees a slot.
	q := syncx.NewEventQueue[int](nil, syncx.EventQueueCapacity(2))
	defer q.Close()

	if err := q.Enqueue(1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(2); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	p := q.EnqueueAsync(context.Background(), 3)
	select {
	case <-p.Done():
		t.Fatal("handle resolved against a full queue")
	default:
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err before completion: got %v, want nil", err)
	}

	if _, ok := q.Dequeue(); !ok {
		t.Fatal("Dequeue: got no item")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait after freeing a slot: %v", err)
	}
}

func TestPendingCancelledBeforeStart(t *testing.T) {
	l := syncx.NewList[int]()
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := l.AddAsync(ctx, 5)
	<-p.Done()
	if err := p.Err(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Err: got %v, want context.Canceled", err)
	}
}

func TestPendingCancelAfterCompletion(t *testing.T) {
	l := syncx.NewList[int]()
	defer l.Close()

	p := l.AddAsync(context.Background(), 1)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// Cancelling a settled handle is a no-op; the result stands.
	p.Cancel()
	if err := p.Err(); err != nil {
		t.Fatalf("Err after late Cancel: %v", err)
	}
	if !l.Contains(1) {
		t.Fatal("Contains(1): got false, want true")
	}
}

func TestPendingWaitHonoursContext(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: lock-free queue transfer uses cross-variable memory ordering")
	}

	q := syncx.NewEventQueue[int](nil, syncx.EventQueueCapacity(2))
	defer q.Close()

	if err := q.Enqueue(1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(2); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The enqueue stays parked; Wait gives up with the caller's error.
	p := q.EnqueueAsync(context.Background(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait: got %v, want context.Canceled", err)
	}

	// The operation itself is unaffected and completes once unblocked.
	if _, ok := q.Dequeue(); !ok {
		t.Fatal("Dequeue: got no item")
	}
	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	if err := p.Wait(wctx); err != nil {
		t.Fatalf("Wait after unblock: %v", err)
	}
}
