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

// Package group implements the Group Descriptor of spec.md §4.4: a
// completion barrier spanning many tasks, supporting wait-all and
// wait-any.
//
// Timeout convention used throughout this package, matching the
// Node's public API (spec.md §6): timeout < 0 blocks forever,
// timeout == 0 performs a single non-blocking check, timeout > 0
// bounds the wait.
package group

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

// Handle identifies one Group descriptor.
type Handle = handle.Handle

// Group is a FIFO of handles of tasks that finished since the last
// wait call, plus an atomic count of tasks not yet signalled
// (spec.md §3).
type Group struct {
	Self handle.Handle

	mu      sync.Mutex
	fifo    []handle.Handle
	changed chan struct{}

	numTasks atomic.Int32
}

// Reset reinitialises a pooled Group descriptor for reuse.
func (g *Group) Reset() {
	g.mu.Lock()
	g.fifo = nil
	g.changed = make(chan struct{})
	g.mu.Unlock()
	g.numTasks.Store(0)
}

// AddTask increments num_tasks; called at submit time for every task
// that names this group, including tasks submitted while a wait_all
// is already in flight (spec.md §9 Open Question, resolved in favour
// of counting them).
func (g *Group) AddTask() {
	g.numTasks.Inc()
}

// NumTasks returns the number of tasks associated with the group that
// have not yet signalled completion (spec.md §3 invariant 3).
func (g *Group) NumTasks() int32 {
	return g.numTasks.Load()
}

// OnTaskCompleted records a task's completion: push its handle onto
// the FIFO, decrement num_tasks, wake any blocked waiter.
func (g *Group) OnTaskCompleted(h handle.Handle) {
	g.mu.Lock()
	g.fifo = append(g.fifo, h)
	old := g.changed
	g.changed = make(chan struct{})
	g.mu.Unlock()
	g.numTasks.Dec()
	close(old)
}

func (g *Group) getChanged() chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changed
}

// WaitAll blocks until NumTasks reaches zero or timeout elapses.
func (g *Group) WaitAll(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		// Capture changed before checking the predicate: OnTaskCompleted
		// always closes whatever channel was current at the moment it
		// ran, so a completion racing the predicate check below is still
		// guaranteed to close this ch, even if it lands after the
		// capture but before (or after) the Load. Capturing only after
		// the predicate check would let such a completion swap in a
		// fresh channel that nothing ever closes again.
		ch := g.getChanged()
		if g.numTasks.Load() <= 0 {
			return nil
		}
		if timeout == 0 {
			return taskcore.ErrTimeout
		}
		if timeout < 0 {
			<-ch
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return taskcore.ErrTimeout
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return taskcore.ErrTimeout
		}
	}
}

// WaitAny dequeues one completion from the group's FIFO, blocking if
// empty, until timeout elapses.
func (g *Group) WaitAny(timeout time.Duration) (handle.Handle, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		// Capture changed before checking the FIFO, for the same reason
		// as WaitAll: a completion that lands between the capture and
		// the FIFO check below is still guaranteed to close this ch.
		ch := g.getChanged()

		g.mu.Lock()
		if len(g.fifo) > 0 {
			h := g.fifo[0]
			g.fifo = g.fifo[1:]
			g.mu.Unlock()
			return h, nil
		}
		g.mu.Unlock()

		if timeout == 0 {
			return handle.Handle{}, taskcore.ErrTimeout
		}
		if timeout < 0 {
			<-ch
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return handle.Handle{}, taskcore.ErrTimeout
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return handle.Handle{}, taskcore.ErrTimeout
		}
	}
}

// Busy reports whether tasks are still in flight for the group
// (spec.md §4.4 delete's fail-fast check).
func (g *Group) Busy() bool {
	return g.numTasks.Load() > 0
}
