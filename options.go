// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"context"
	"time"
)

// Default tuning values. Each knob has a per-component option below.
const (
	// DefaultLockTimeout bounds lock acquisition, removal retries and
	// index lookups.
	DefaultLockTimeout = 3 * time.Second

	// DefaultDrainTimeout bounds waits for in-flight asynchronous
	// mutations to settle (Clear, RemoveAt).
	DefaultDrainTimeout = 10 * time.Second

	// DefaultCapacity is the operation queue capacity for the
	// queue-backed primitives. Rounds up to the next power of 2.
	DefaultCapacity = 1024
)

// CellOption configures a Cell.
type CellOption func(*cellOptions)

type cellOptions struct {
	timeout   time.Duration
	unguarded bool
}

func defaultCellOptions() cellOptions {
	return cellOptions{timeout: DefaultLockTimeout}
}

// CellTimeout sets the bound on lock acquisition in Set and Get.
//
// Panics if d <= 0.
func CellTimeout(d time.Duration) CellOption {
	if d <= 0 {
		panic("syncx: timeout must be positive")
	}
	return func(o *cellOptions) { o.timeout = d }
}

// CellUnguarded disables locking entirely. Set and Get always succeed
// immediately. For value types whose access is already safe, or callers
// that accept torn visibility in exchange for zero wait.
func CellUnguarded() CellOption {
	return func(o *cellOptions) { o.unguarded = true }
}

// ListOption configures a List.
type ListOption func(*listOptions)

type listOptions struct {
	ctx           context.Context
	removeTimeout time.Duration
	clearTimeout  time.Duration
}

func defaultListOptions() listOptions {
	return listOptions{
		ctx:           context.Background(),
		removeTimeout: DefaultLockTimeout,
		clearTimeout:  DefaultDrainTimeout,
	}
}

// ListContext ties the list's forget operations to ctx. When ctx is
// cancelled every in-flight forget task is cancelled, the same as Close.
//
// Panics if ctx is nil.
func ListContext(ctx context.Context) ListOption {
	if ctx == nil {
		panic("syncx: nil context")
	}
	return func(o *listOptions) { o.ctx = ctx }
}

// ListRemoveTimeout sets the retry bound for Remove.
//
// Panics if d <= 0.
func ListRemoveTimeout(d time.Duration) ListOption {
	if d <= 0 {
		panic("syncx: timeout must be positive")
	}
	return func(o *listOptions) { o.removeTimeout = d }
}

// ListClearTimeout sets the bound Clear and RemoveAt wait for in-flight
// forget tasks to settle before mutating.
//
// Panics if d <= 0.
func ListClearTimeout(d time.Duration) ListOption {
	if d <= 0 {
		panic("syncx: timeout must be positive")
	}
	return func(o *listOptions) { o.clearTimeout = d }
}

// QueuedListOption configures a QueuedList.
type QueuedListOption func(*queuedListOptions)

type queuedListOptions struct {
	capacity      int
	removeTimeout time.Duration
	lookupTimeout time.Duration
}

func defaultQueuedListOptions() queuedListOptions {
	return queuedListOptions{
		capacity:      DefaultCapacity,
		removeTimeout: DefaultLockTimeout,
		lookupTimeout: DefaultLockTimeout,
	}
}

// QueuedListCapacity sets the capacity of each operation queue.
// Rounds up to the next power of 2.
//
// Panics if capacity < 2.
func QueuedListCapacity(capacity int) QueuedListOption {
	if capacity < 2 {
		panic("syncx: capacity must be >= 2")
	}
	return func(o *queuedListOptions) { o.capacity = capacity }
}

// QueuedListRemoveTimeout sets the bound the remove worker spends
// retrying a single item before dropping it.
//
// Panics if d <= 0.
func QueuedListRemoveTimeout(d time.Duration) QueuedListOption {
	if d <= 0 {
		panic("syncx: timeout must be positive")
	}
	return func(o *queuedListOptions) { o.removeTimeout = d }
}

// QueuedListLookupTimeout sets the retry bound for IndexOf.
//
// Panics if d <= 0.
func QueuedListLookupTimeout(d time.Duration) QueuedListOption {
	if d <= 0 {
		panic("syncx: timeout must be positive")
	}
	return func(o *queuedListOptions) { o.lookupTimeout = d }
}

// EventQueueOption configures an EventQueue.
type EventQueueOption func(*eventQueueOptions)

type eventQueueOptions struct {
	capacity int
}

func defaultEventQueueOptions() eventQueueOptions {
	return eventQueueOptions{capacity: DefaultCapacity}
}

// EventQueueCapacity sets the backing queue capacity.
// Rounds up to the next power of 2.
//
// Panics if capacity < 2.
func EventQueueCapacity(capacity int) EventQueueOption {
	if capacity < 2 {
		panic("syncx: capacity must be >= 2")
	}
	return func(o *eventQueueOptions) { o.capacity = capacity }
}
