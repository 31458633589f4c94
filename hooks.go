// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncx

import (
	"slices"
	"sync"
)

// hookList is an append-only subscriber registry for one event kind.
// Registration takes a short mutex; dispatch works on a snapshot so
// callbacks run outside every container lock.
type hookList[F any] struct {
	mu  sync.Mutex
	fns []F
}

func (h *hookList[F]) add(fn F) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *hookList[F]) snapshot() []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.fns)
}

func (h *hookList[F]) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fns)
}

func (h *hookList[F]) clear() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}
