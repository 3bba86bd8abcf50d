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

// Package xsync collects the small atomic/spinlock primitives spec.md
// §9's design notes call out: a portable typed-atomics base plus one
// fence primitive, rather than the hand-rolled macro-generated atomic
// types the original source used for every integer width. taskcore
// uses go.uber.org/atomic directly for typed loads/stores/CAS/FAA, so
// this package only adds what atomic.* doesn't already provide: a
// brief-mutual-exclusion spinlock, which guards every operation on
// the worker deque.
package xsync

import (
	"runtime"

	"go.uber.org/atomic"
)

// Spinlock is a test-and-test-and-set spinlock for sections so brief
// that parking on a mutex's OS-level wait would cost more than
// spinning (spec.md §2: "Brief mutual exclusion around pool slots,
// queue heads/tails, counters"). It must never be held across a
// blocking call.
type Spinlock struct {
	held atomic.Bool
}

// Lock spins until the lock is acquired.
func (s *Spinlock) Lock() {
	for {
		if !s.held.Load() && s.held.CompareAndSwap(false, true) {
			return
		}
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (s *Spinlock) Unlock() {
	s.held.Store(false)
}

// TryLock attempts to acquire the lock without spinning.
func (s *Spinlock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}

// Fence is a full memory fence, for the rare case where a lock-free
// algorithm needs ordering not already implied by an atomic op. Go's
// atomic operations (and so go.uber.org/atomic) already carry
// sequential-consistency semantics on every load/store/CAS, so this
// is a documented no-op rather than a real barrier instruction; it
// exists so call sites that would carry an explicit fence in the
// original source have a named, searchable spot to express that
// intent.
func Fence() {}
