// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package handle implements spec.md §4.1, the Handle Pool: a
// fixed-capacity, indexed array of slots, each recycled through a
// version-stamped generation counter so a stale handle never resolves
// to a live descriptor (spec.md §3 invariant 1).
//
// Acquire claims a slot with a compare-and-swap on its "in use" word;
// Release validates the handle, then bumps the generation and clears
// "in use" with plain atomic stores. Lookup never takes a lock. Capacity is fixed at construction, matching the Node's
// default pool sizing (spec.md §4.1: tasks 1024, groups/queues 128,
// actions 64).
package handle

import (
	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
)

// Handle is the opaque {id, generation} pair described by spec.md §3.
// A zero Handle is never issued by Acquire (generations start at 1),
// so it is safe to use as a "no handle" sentinel.
type Handle struct {
	Index      uint32
	Generation uint32
}

// Valid reports whether h could plausibly have been returned by
// Acquire. It does not consult a Pool, so it cannot detect staleness;
// use Pool.Lookup for that.
func (h Handle) Valid() bool {
	return h.Generation != 0
}

type slot[T any] struct {
	generation atomic.Uint32
	inUse      atomic.Bool
	value      T
}

// Pool is a bounded recycling allocator for descriptor objects of
// type T (Task, Group, Queue, or Action records).
type Pool[T any] struct {
	name   string
	slots  []slot[T]
	cursor atomic.Uint32
}

// New creates a Pool with the given fixed capacity.
func New[T any](name string, capacity int) *Pool[T] {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool[T]{
		name:  name,
		slots: make([]slot[T], capacity),
	}
	for i := range p.slots {
		p.slots[i].generation.Store(1)
	}
	return p
}

// Name returns the pool's diagnostic name (e.g. "task", "group").
func (p *Pool[T]) Name() string { return p.name }

// Capacity returns the fixed number of slots in the pool.
func (p *Pool[T]) Capacity() int { return len(p.slots) }

// InUse returns a snapshot count of occupied slots. For diagnostics
// only; the count may be stale the instant it is read.
func (p *Pool[T]) InUse() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse.Load() {
			n++
		}
	}
	return n
}

// Acquire finds a free slot, marks it in use, and returns its handle
// together with a pointer to the zero-valued descriptor storage for
// the caller to populate. hint biases the scan toward a particular
// slot index for locality (e.g. a worker's own previous slot); pass a
// negative hint for none.
//
// Acquire returns taskcore.ErrPoolExhausted if every slot is in use.
func (p *Pool[T]) Acquire(hint int) (Handle, *T, error) {
	n := len(p.slots)
	start := hint
	if start < 0 || start >= n {
		start = int(p.cursor.Add(1)) % n
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		s := &p.slots[idx]
		if s.inUse.CompareAndSwap(false, true) {
			var zero T
			s.value = zero
			return Handle{Index: uint32(idx), Generation: s.generation.Load()}, &s.value, nil
		}
	}
	return Handle{}, nil, taskcore.ErrPoolExhausted
}

// Lookup returns the descriptor for h if h resolves to a live slot
// with a matching generation. It performs no locking.
func (p *Pool[T]) Lookup(h Handle) (*T, bool) {
	if int(h.Index) >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.Index]
	if !s.inUse.Load() {
		return nil, false
	}
	if s.generation.Load() != h.Generation {
		return nil, false
	}
	return &s.value, true
}

// Release validates h, bumps the slot's generation (invalidating any
// handle already in flight for the old generation), and returns the
// slot to the freelist implicitly by clearing "in use".
//
// Release returns taskcore.ErrInvalidHandle if h is stale.
func (p *Pool[T]) Release(h Handle) error {
	if int(h.Index) >= len(p.slots) {
		return taskcore.ErrInvalidHandle
	}
	s := &p.slots[h.Index]
	if !s.inUse.Load() || s.generation.Load() != h.Generation {
		return taskcore.ErrInvalidHandle
	}
	// Bump the generation before clearing in-use: a concurrent Acquire
	// that wins the slot right after only ever observes the new
	// generation, so a handle captured against the old generation can
	// never alias the new occupant.
	next := s.generation.Load() + 1
	if next == 0 {
		next = 1
	}
	s.generation.Store(next)
	s.inUse.Store(false)
	return nil
}
