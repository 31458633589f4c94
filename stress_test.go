// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/syncx"
)

// =============================================================================
// QueuedList Stress Tests
// =============================================================================

// TestQueuedListStressMultiProducer hammers the add queue from many
// goroutines and verifies every element lands exactly once.
func TestQueuedListStressMultiProducer(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: lock-free queue transfer uses cross-variable memory ordering")
	}

	const (
		numProducers = 8
		itemsPerProd = 2000
	)

	l := syncx.NewQueuedList[int](syncx.QueuedListCapacity(64))
	defer l.Close()

	expectedTotal := numProducers * itemsPerProd

	var wg sync.WaitGroup
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerProd {
				if err := l.Add(id*itemsPerProd + i); err != nil {
					t.Errorf("Add: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := l.Len(); got != expectedTotal {
		t.Fatalf("Len: got %d, want %d", got, expectedTotal)
	}

	// No loss, no duplication.
	seen := make([]int, expectedTotal)
	for _, v := range l.Snapshot() {
		if v < 0 || v >= expectedTotal {
			t.Fatalf("unexpected element %d", v)
		}
		seen[v]++
	}
	for v, count := range seen {
		if count != 1 {
			t.Fatalf("element %d applied %d times, want 1", v, count)
		}
	}
}

// TestQueuedListStressMixedKinds runs adds and removes concurrently and
// verifies the lanes all settle.
func TestQueuedListStressMixedKinds(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: lock-free queue transfer uses cross-variable memory ordering")
	}

	const (
		numPairs    = 4
		itemsPerGor = 500
	)

	l := syncx.NewQueuedList[int](
		syncx.QueuedListCapacity(64),
		syncx.QueuedListRemoveTimeout(2*time.Second),
	)
	defer l.Close()

	var wg sync.WaitGroup
	for p := range numPairs {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerGor {
				if err := l.Add(id*itemsPerGor + i); err != nil {
					t.Errorf("Add: %v", err)
					return
				}
			}
		}(p)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerGor {
				if err := l.Remove(id*itemsPerGor + i); err != nil {
					t.Errorf("Remove: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Each remove either caught its add or timed out waiting for it, so
	// anything can remain except more than was added.
	total := numPairs * itemsPerGor
	if got := l.Len(); got < 0 || got > total {
		t.Fatalf("Len: got %d, want within [0, %d]", got, total)
	}
}

// =============================================================================
// EventQueue Stress Tests
// =============================================================================

// TestEventQueueStressProducersConsumers runs concurrent enqueuers and
// dequeuers through a small queue and verifies counter exactness.
func TestEventQueueStressProducersConsumers(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: lock-free queue transfer uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		numConsumers = 4
		itemsPerProd = 5000
		timeout      = 10 * time.Second
	)

	q := syncx.NewEventQueue[int](nil, syncx.EventQueueCapacity(64))
	defer q.Close()

	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerProd {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				if err := q.Enqueue(id*itemsPerProd + i); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
				produced.Add(1)
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, ok := q.Dequeue()
				if ok {
					if v >= 0 && v < expectedTotal {
						seen[v].Add(1)
					}
					consumed.Add(1)
					backoff.Reset()
					continue
				}
				if produced.Load() == int64(expectedTotal) && consumed.Load() == int64(expectedTotal) {
					return
				}
				backoff.Wait()
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Logf("timeout: produced=%d, consumed=%d/%d", produced.Load(), consumed.Load(), expectedTotal)
	}
	if got := consumed.Load(); got != int64(expectedTotal) {
		t.Errorf("consumed %d, want %d", got, expectedTotal)
	}

	var duplicates int
	for i := range expectedTotal {
		if count := seen[i].Load(); count > 1 {
			duplicates++
		}
	}
	if duplicates > 0 {
		t.Errorf("duplicate delivery: %d values", duplicates)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("Len after drain: got %d, want 0", got)
	}
}

// =============================================================================
// Cell Stress Tests
// =============================================================================

// TestCellStressReadersWriters runs writers against readers and verifies
// reads only ever observe the initial value or a written one.
func TestCellStressReadersWriters(t *testing.T) {
	if syncx.RaceEnabled {
		t.Skip("skip: spin lock handoff uses cross-variable memory ordering")
	}

	const (
		numWriters = 4
		numReaders = 4
		opsPerGor  = 2000
	)

	c := syncx.NewCell(-1, syncx.CellTimeout(10*time.Second))
	defer c.Close()

	total := numWriters * opsPerGor

	var wg sync.WaitGroup
	var setFailures atomix.Int64
	for w := range numWriters {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range opsPerGor {
				if !c.Set(id*opsPerGor + i) {
					setFailures.Add(1)
				}
			}
		}(w)
	}
	for range numReaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range opsPerGor {
				v, _ := c.Get()
				if v != -1 && (v < 0 || v >= total) {
					t.Errorf("read impossible value %d", v)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := setFailures.Load(); got != 0 {
		t.Errorf("set failures under 10s budget: got %d, want 0", got)
	}
	if v := c.Current(); v != -1 && (v < 0 || v >= total) {
		t.Errorf("final value %d out of range", v)
	}
}
