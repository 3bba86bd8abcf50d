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

// Package queue implements the Queue Descriptor of spec.md §4.5: a
// per-resource serialiser over its tasks, either strictly FIFO
// ("ordered") or retain-order-but-parallel ("unordered" with bounded
// parallelism).
//
// Both behaviours are implemented with one algorithm parameterised by
// effective parallelism (ordered == parallelism 1): tasks are
// promoted from the pending list to in-flight up to the parallelism
// bound, and completion *signalling* (not execution) is released
// strictly in enqueue order, per spec.md §4.5's retain-order
// requirement. For an ordered queue only one task is ever in flight,
// so a task that ran is signalled as soon as it retires; only a task
// cancelled while still pending can be held back behind it.
package queue

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

// Handle identifies one Queue descriptor.
type Handle = handle.Handle

// Queue serialises the tasks submitted to it (spec.md §3).
type Queue struct {
	Self  handle.Handle
	Job   taskcore.JobID
	Attrs taskcore.QueueAttributes

	disabled atomic.Bool

	mu            sync.Mutex
	pending       []handle.Handle
	seqOf         map[handle.Handle]uint64
	finishedEarly map[uint64]handle.Handle
	nextSeq       uint64
	nextToSignal  uint64
	inFlight      int
}

// Reset reinitialises a pooled Queue descriptor for reuse.
func (q *Queue) Reset(job taskcore.JobID, attrs taskcore.QueueAttributes) {
	q.Job = job
	q.Attrs = attrs
	q.disabled.Store(false)
	q.mu.Lock()
	q.pending = nil
	q.seqOf = make(map[handle.Handle]uint64)
	q.finishedEarly = make(map[uint64]handle.Handle)
	q.nextSeq = 0
	q.nextToSignal = 0
	q.inFlight = 0
	q.mu.Unlock()
}

// Enable / Disable toggle whether Enqueue accepts further submissions
// (spec.md §4.5).
func (q *Queue) Enable()  { q.disabled.Store(false) }
func (q *Queue) Disable() { q.disabled.Store(true) }

// Enabled reports whether Enqueue currently accepts submissions; used
// by the submission path to fail fast before acquiring a Task slot.
func (q *Queue) Enabled() bool { return !q.disabled.Load() }

// Enqueue appends a task handle to the queue. It returns promote=true
// if the task may be dispatched to a worker deque immediately (the
// caller does so); otherwise the task waits in the pending list until
// Retire makes room.
func (q *Queue) Enqueue(h handle.Handle) (promote bool, err error) {
	if q.disabled.Load() {
		return false, taskcore.ErrQueueDisabled
	}
	parallelism := q.Attrs.EffectiveParallelism()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.seqOf[h] = q.nextSeq
	q.nextSeq++

	if q.inFlight < parallelism {
		q.inFlight++
		return true, nil
	}
	q.pending = append(q.pending, h)
	return false, nil
}

// Retire is called once a promoted task's action has returned; it is
// the wasPromoted=true case of Cancel.
func (q *Queue) Retire(h handle.Handle) (toSignal, toPromote []handle.Handle) {
	return q.Cancel(h, true)
}

// Cancel retires h from the queue's bookkeeping whether it was
// already promoted to in-flight (wasPromoted=true: its action ran, or
// it was cancelled after dispatch) or was cancelled while still
// sitting in the pending list (wasPromoted=false: it never occupied a
// parallelism slot, e.g. a pre-ready cancellation). Either way h's
// enqueue-order slot must be released so later tasks' completion
// signalling isn't stuck waiting behind it forever.
//
// It returns the handles (in enqueue order, possibly including h
// itself and tasks that finished earlier but were held back) whose
// completion signalling may now proceed, and the handles newly
// promoted from the pending list that the caller should dispatch to
// worker deques.
func (q *Queue) Cancel(h handle.Handle, wasPromoted bool) (toSignal, toPromote []handle.Handle) {
	parallelism := q.Attrs.EffectiveParallelism()

	q.mu.Lock()
	defer q.mu.Unlock()

	seq, ok := q.seqOf[h]
	if ok {
		delete(q.seqOf, h)
		q.finishedEarly[seq] = h
	}

	if wasPromoted {
		q.inFlight--
	} else {
		for i, p := range q.pending {
			if p == h {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				break
			}
		}
	}

	for {
		next, ok := q.finishedEarly[q.nextToSignal]
		if !ok {
			break
		}
		toSignal = append(toSignal, next)
		delete(q.finishedEarly, q.nextToSignal)
		q.nextToSignal++
	}

	for q.inFlight < parallelism && len(q.pending) > 0 {
		n := q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight++
		toPromote = append(toPromote, n)
	}
	return toSignal, toPromote
}

// Busy reports whether any task is pending or in flight; Delete fails
// while Busy (spec.md §4.5: "Deletion blocks until all enqueued tasks
// have been retired" — taskcore surfaces this as a non-blocking busy
// check the caller can poll, rather than literally blocking the
// deleting goroutine).
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight > 0 || len(q.pending) > 0
}
