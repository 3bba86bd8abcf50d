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

// Package worker implements the Worker Thread & Deque component of
// spec.md §4.2: one goroutine per worker, each owning a double-ended
// queue of ready task handles, with work-stealing dispatch.
package worker

import (
	"github.com/taskcore/taskcore/internal/xsync"
	"github.com/taskcore/taskcore/task"
)

// Deque is a double-ended queue of task handles. Per spec.md §4.2,
// "Implementation freedom: a Chase-Lev style deque or a lock-protected
// ring buffer both satisfy the contract" provided extraction is
// at-most-once, never tears under concurrent steal, and push-bottom is
// linearisable with the owner's pop-bottom. taskcore takes the
// lock-protected route: a single spinlock guards a slice used as the
// deque, since the sections it protects are short and never block.
type Deque struct {
	lock xsync.Spinlock
	buf  []task.Handle
}

// NewDeque creates an empty deque with the given initial capacity
// hint.
func NewDeque(capacityHint int) *Deque {
	return &Deque{buf: make([]task.Handle, 0, capacityHint)}
}

// PushBottom appends h to the bottom; owner-only.
func (d *Deque) PushBottom(h task.Handle) {
	d.lock.Lock()
	d.buf = append(d.buf, h)
	d.lock.Unlock()
}

// PopBottom removes and returns the most recently pushed handle
// (LIFO); owner-only. Returns ok=false if empty.
func (d *Deque) PopBottom() (task.Handle, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	n := len(d.buf)
	if n == 0 {
		return task.Handle{}, false
	}
	h := d.buf[n-1]
	d.buf[n-1] = task.Handle{}
	d.buf = d.buf[:n-1]
	return h, true
}

// StealTop removes and returns the oldest pushed handle (FIFO); safe
// to call from any worker other than the owner. Returns ok=false if
// empty or the race is lost to a concurrent steal/pop.
func (d *Deque) StealTop() (task.Handle, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.buf) == 0 {
		return task.Handle{}, false
	}
	h := d.buf[0]
	d.buf = d.buf[1:]
	return h, true
}

// Len returns a snapshot length, for diagnostics/metrics only.
func (d *Deque) Len() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.buf)
}
