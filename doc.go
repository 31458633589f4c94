// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package syncx provides concurrent mutable-state primitives.
//
// The package offers four independent, composable primitives:
//
//   - Cell: a single mutable slot guarded by a spin lock with bounded wait
//   - List: a mutex-guarded list with tracked fire-and-forget mutations
//   - QueuedList: a list fed by per-operation queues with lazy workers
//   - EventQueue: a notifying FIFO with a start/stoppable drain goroutine
//
// None of the primitives calls another; pick the one matching the
// contention profile and visibility needs of the shared state.
//
// # Quick Start
//
//	// A shared value swapped safely
//	cell := syncx.NewCell(config)
//	cell.Set(newConfig)
//	current := cell.Current()
//
//	// A shared list mutated from many goroutines
//	list := syncx.NewList[string]()
//	list.Add("a")
//	list.AddForget("b") // fire and forget, tracked until applied
//
//	// High-throughput producers, eventual visibility
//	ql := syncx.NewQueuedList[int]()
//	ql.Add(1)
//	ql.Wait(ctx) // block until queued mutations applied
//
//	// Queue with notifications
//	eq := syncx.NewEventQueue[int](nil)
//	eq.OnDequeued(func(v int) { consume(v) })
//	eq.StartEventDequeue()
//
// # Choosing a Primitive
//
// Cell serializes access to one value. Set and Get wait for the lock up
// to a configured timeout; a timed out Set reports false instead of
// blocking forever. Use it where a full container is overkill.
//
// List serializes a whole sequence behind one lock. Every mutation has
// a synchronous form, an asynchronous form returning a [Pending]
// handle, and a tracked fire-and-forget form. Close and the lifetime
// context cancel whatever is still in flight.
//
// QueuedList decouples producer latency from the list lock: producers
// enqueue onto lock-free operation queues and return, lazily spawned
// workers apply the mutations. Reads see the applied state only.
// Ordering holds within one operation kind, not across kinds.
//
// EventQueue is a FIFO whose enqueues and dequeues raise hooks, with a
// background unit that drains continuously once started. Subscriber
// panics route to the error hook instead of the calling goroutine.
//
// # Timeouts Are Soft
//
// Bounded waits expire into results, not errors: a timed out Cell.Set
// returns false, a timed out List.Remove returns (false, nil), a timed
// out QueuedList.IndexOf returns (0, false). Errors are reserved for
// misuse: [ErrClosed], [ErrOutOfRange], [ErrNotComparable],
// [ErrRunning], [ErrNotRunning], [ErrNoHandler].
//
// [ErrWouldBlock] surfaces from the queue-backed internals and is a
// retryable control flow signal, classified by [IsWouldBlock],
// [IsSemantic] and [IsNonFailure] exactly as in
// [code.hybscloud.com/lfq].
//
// # Hooks
//
// Mutation hooks fire on the mutating goroutine after the container
// lock is released, with the subscriber list snapshotted first. A hook
// may call back into its container without deadlocking. Hooks of one
// mutation kind observe that kind's apply order.
//
// # Race Detection
//
// The primitives keep their fast paths on atomic operations with
// acquire-release orderings. The race detector cannot observe
// happens-before established through such orderings on separate
// variables and reports false positives under heavy concurrent load.
// Stress tests exercising those paths are excluded via //go:build !race;
// the functional suite runs race-clean.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/lfq] for the lock-free
// operation queues, [code.hybscloud.com/iox] for semantic errors and
// adaptive backoff, [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, and [code.hybscloud.com/spin] for CPU
// pause instructions.
package syncx
