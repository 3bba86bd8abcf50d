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

// Package task implements the Task Descriptor and its state machine
// (spec.md §3, §4.6). A Task knows nothing about the Scheduler,
// Group, or Queue packages; it only exposes the atomic transitions and
// completion gate those packages orchestrate around.
package task

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

// Handle identifies one Task descriptor.
type Handle = handle.Handle

// State is the task lifecycle position, spec.md §4.6:
// Created -> PreReady -> Ready -> Running -> Completed -> Retired.
type State int32

const (
	StateCreated State = iota
	StatePreReady
	StateReady
	StateRunning
	StateCompleted
	StateRetired
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePreReady:
		return "pre-ready"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Task is one scheduled execution of a job (spec.md §3). The Args and
// Result slices are caller-owned memory, read and written while the
// task is live; taskcore never copies or frees them.
type Task struct {
	Self   Handle
	Job    taskcore.JobID
	Action handle.Handle // resolved action.Handle, set at submit time
	Args   []byte
	Result []byte
	Attrs  taskcore.Attributes

	HasGroup bool
	Group    handle.Handle
	HasQueue bool
	Queue    handle.Handle

	state     atomic.Int32
	status    atomic.Error
	cancelled atomic.Bool

	remaining    atomic.Int32 // remaining_instances, spec.md §3
	nextInstance atomic.Int32 // next instance_num to hand out, see NextInstanceNum

	done     chan struct{}
	doneOnce sync.Once

	waited atomic.Bool // Wait() has observed completion and may retire
}

// Reset reinitialises a pooled Task descriptor for reuse by a fresh
// Acquire; called by the scheduler right after acquiring a slot.
func (t *Task) Reset() {
	t.Self = Handle{}
	t.Job = 0
	t.Action = handle.Handle{}
	t.Args = nil
	t.Result = nil
	t.Attrs = taskcore.Attributes{}
	t.HasGroup = false
	t.Group = handle.Handle{}
	t.HasQueue = false
	t.Queue = handle.Handle{}
	t.state.Store(int32(StateCreated))
	t.status.Store(nil)
	t.cancelled.Store(false)
	t.remaining.Store(0)
	t.nextInstance.Store(0)
	t.done = make(chan struct{})
	t.doneOnce = sync.Once{}
	t.waited.Store(false)
}

// State returns the current lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

// Status returns the recorded final status, valid once State is
// Completed or later.
func (t *Task) Status() taskcore.Status { return t.status.Load() }

// MarkPreReady performs the Created -> PreReady transition after
// successful submit validation (spec.md §4.6).
func (t *Task) MarkPreReady() {
	t.state.CompareAndSwap(int32(StateCreated), int32(StatePreReady))
}

// MarkReady performs the PreReady -> Ready transition once the task is
// attached to a deque or a queue head.
func (t *Task) MarkReady() {
	t.remaining.Store(int32(t.Attrs.NumInstances()))
	t.state.CompareAndSwap(int32(StatePreReady), int32(StateReady))
}

// TryRun attempts the Ready -> Running transition for dispatch. It
// fails (returns false) if the task was already cancelled while
// Ready, or another worker instance already started it.
func (t *Task) TryRun() bool {
	return t.state.CompareAndSwap(int32(StateReady), int32(StateRunning))
}

// NextInstanceNum hands out the next 0-based instance_num for a
// multi-instance task (spec.md §3, num_instances > 1): each of the
// NumInstances deque entries for this task calls this exactly once,
// right before invoking the action, to learn which copy it is.
func (t *Task) NextInstanceNum() int {
	return int(t.nextInstance.Inc()) - 1
}

// TryCancelReady attempts to cancel a task that has been attached to a
// deque or queue head but has not started running: Ready -> Completed
// directly, status ErrActionCancelled (or the caller-supplied status),
// action never invoked. Completion signalling (group/queue/waiters)
// is the caller's responsibility via SignalDone, exactly as for a task
// whose action actually ran — this lets a queued task's cancellation
// still respect the queue's retain-order signalling.
func (t *Task) TryCancelReady(status taskcore.Status) bool {
	return t.tryCancelFrom(StateReady, status)
}

// TryCancelPending attempts to cancel a task that has been submitted
// but is still waiting in a Queue's pending list, never yet attached
// to a deque (PreReady -> Completed directly).
func (t *Task) TryCancelPending(status taskcore.Status) bool {
	return t.tryCancelFrom(StatePreReady, status)
}

func (t *Task) tryCancelFrom(from State, status taskcore.Status) bool {
	if status == nil {
		status = taskcore.ErrActionCancelled
	}
	if t.state.CompareAndSwap(int32(from), int32(StateCompleted)) {
		t.status.Store(status)
		return true
	}
	return false
}

// RequestCancel sets the cooperative cancellation flag. It is
// wait-free and idempotent (spec.md §5); it never forces a running
// task to stop.
func (t *Task) RequestCancel() {
	t.cancelled.Store(true)
}

// ShouldCancel reports whether RequestCancel has been called.
func (t *Task) ShouldCancel() bool {
	return t.cancelled.Load()
}

// FinishInstance records one parallel instance's completion and
// returns true exactly once, when the last instance finishes. The
// caller uses that signal to drive the Running -> Completed
// transition via Complete; status from the action itself should
// already have been recorded via SetStatus before calling this.
func (t *Task) FinishInstance() bool {
	return t.remaining.Dec() == 0
}

// Complete performs the Running -> Completed transition once the last
// instance has finished. It does not signal waiters — that is
// SignalDone's job, invoked separately once the owning Group/Queue's
// ordering rules say this task's turn to be observed has arrived.
func (t *Task) Complete() {
	t.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted))
}

// SetStatus overrides the recorded status; used by ActionContext's
// SetStatus and by the scheduler to force ErrActionPanicked. The
// first non-nil (error) status wins; success (nil, the zero value)
// never overwrites a previously recorded error from another instance.
func (t *Task) SetStatus(status taskcore.Status) {
	if status == nil {
		return
	}
	t.status.CompareAndSwap(nil, status)
}

// Retire performs the Completed -> Retired transition. It returns
// true exactly once, telling the caller to release the Task's pool
// slot; a second call (e.g. racing a detached auto-retire against an
// explicit Wait-triggered retire) safely returns false.
func (t *Task) Retire() bool {
	return t.state.CompareAndSwap(int32(StateCompleted), int32(StateRetired))
}

// SignalDone closes the completion gate, waking any Wait call and
// letting a Group/Queue consider this task observed. It is separate
// from Complete so a Queue can hold it back until earlier queued
// tasks have already been signalled (spec.md §4.5's retain-order
// completion rule); it is idempotent and safe to call exactly once
// per task from whichever call site reaches it first.
func (t *Task) SignalDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

// Wait blocks until the task reaches Completed (or later), or timeout
// elapses. Following the convention used throughout this core's public
// API (spec.md §6): timeout < 0 blocks forever, timeout == 0 performs a
// single non-blocking check (spec.md §8 testable property 6), timeout
// > 0 bounds the wait. A detached task always returns
// taskcore.ErrDetached immediately (spec.md §4.8).
func (t *Task) Wait(timeout time.Duration) (taskcore.Status, error) {
	if t.Attrs.IsDetached {
		return nil, taskcore.ErrDetached
	}

	select {
	case <-t.done:
		t.waited.Store(true)
		return t.status.Load(), nil
	default:
	}
	if timeout == 0 {
		return nil, taskcore.ErrTimeout
	}
	if timeout < 0 {
		<-t.done
		t.waited.Store(true)
		return t.status.Load(), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.done:
		t.waited.Store(true)
		return t.status.Load(), nil
	case <-timer.C:
		return nil, taskcore.ErrTimeout
	}
}

// ReadyForRetire reports whether a task may now be released back to
// its pool (spec.md §3's lifecycle note: "destroyed when no waiter
// holds a reference"). Three cases hold no reference once signalled:
// a detached task (the caller declared up front it will never Wait),
// a task an individual Wait has already observed, and a group-only
// task (HasGroup, not HasQueue) — wait_all/wait_any synchronise and
// identify completions through the Group itself, never handing the
// caller a handle it is expected to Wait on afterward, so such a task
// is retired the moment signalTask reports it to its Group, the same
// as a detached one. A queue-owned task is deliberately excluded even
// when it also belongs to a group: ordered-queue callers commonly
// Wait on every submitted handle after the fact, so retiring eagerly
// there would race an explicit Wait against pool reuse.
func (t *Task) ReadyForRetire() bool {
	return t.Attrs.IsDetached || t.waited.Load() || (t.HasGroup && !t.HasQueue)
}

// Done returns the completion gate channel, closed once the task
// reaches Completed. Exposed for the Group/Scheduler to select on
// alongside other channels (e.g. wait_any).
func (t *Task) Done() <-chan struct{} {
	return t.done
}
