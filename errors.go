// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// It surfaces from the queue-backed primitives when the underlying queue
// is full (enqueue side) or empty (dequeue side). ErrWouldBlock is a
// control flow signal, not a failure. The caller should retry later
// rather than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// Failure sentinels. Unlike ErrWouldBlock these indicate misuse or an
// unusable instance and are not retryable.
var (
	// ErrClosed is returned by operations invoked after Close.
	ErrClosed = errors.New("syncx: use of closed instance")

	// ErrOutOfRange is returned when an index falls outside the
	// backing sequence.
	ErrOutOfRange = errors.New("syncx: index out of range")

	// ErrNotComparable is returned by Cell comparisons when the held
	// type exposes no comparison capability.
	ErrNotComparable = errors.New("syncx: value type is not comparable")

	// ErrRunning is returned by StartEventDequeue when the background
	// unit is already running.
	ErrRunning = errors.New("syncx: event dequeue already running")

	// ErrNotRunning is returned by StopEventDequeue when the background
	// unit is not running.
	ErrNotRunning = errors.New("syncx: event dequeue not running")

	// ErrNoHandler is returned by StartEventDequeue when no dequeued
	// handler is attached. A background drain with nobody to notify
	// would silently discard items.
	ErrNoHandler = errors.New("syncx: no dequeued handler attached")
)

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
