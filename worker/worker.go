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

package worker

import (
	"math/rand"

	"github.com/lindb/common/pkg/logger"
	"go.uber.org/atomic"

	"github.com/taskcore/taskcore/task"
)

var log = logger.GetLogger("Worker", "Dispatch")

// DefaultSpinIterations is a dispatch-loop spin budget within spec.md
// §4.2's [64, 4096] range, equal to config.DefaultSpinIterations, which
// node applies when the attribute is unset.
const DefaultSpinIterations = 256

// Hooks lets the Scheduler plug in the dispatch behaviour a Worker
// needs without worker importing scheduler (which owns the deques,
// the action registry, and task pool); spec.md's dispatch loop
// (§4.2) is entirely expressed in terms of these callbacks.
type Hooks struct {
	// StealVictim returns a worker index other than self to attempt to
	// steal from; the scheduler knows the total worker count.
	StealVictim func(self int) int
	// StealFrom attempts to steal one ready task handle from victim's
	// deque.
	StealFrom func(victim int) (task.Handle, bool)
	// Execute runs h to completion on this worker; the scheduler
	// resolves h via the task pool, invokes the selected action, and
	// performs completion signalling.
	Execute func(h task.Handle, workerIndex int)
	// WakeChan returns the current "something changed" channel; it is
	// closed and replaced every time a submission or completion might
	// have made more work available, following the same swap-and-close
	// broadcast idiom as group.Group's completion signal.
	WakeChan func() <-chan struct{}
	// ShouldStop reports the Node's global_stop_flag.
	ShouldStop func() bool
	// SpinIterations bounds the busy-spin budget before parking; Run
	// clamps it to [64, 4096].
	SpinIterations int
}

// Worker is one OS-thread-backed (goroutine-backed) dispatcher owning
// a deque of ready task handles (spec.md §3).
type Worker struct {
	Index int
	Deque *Deque

	parked atomic.Bool
	rng    *rand.Rand

	hooks Hooks
	done  chan struct{}
}

// New creates a Worker; Run must be called (typically in its own
// goroutine) to start the dispatch loop.
func New(index int, hooks Hooks) *Worker {
	return &Worker{
		Index: index,
		Deque: NewDeque(64),
		rng:   rand.New(rand.NewSource(int64(index)+1)), //nolint:gosec // scheduling jitter, not security-sensitive
		hooks: hooks,
		done:  make(chan struct{}),
	}
}

// Parked reports whether the worker is currently blocked waiting for
// work, for diagnostics.
func (w *Worker) Parked() bool { return w.parked.Load() }

// Done is closed once the dispatch loop has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run executes the dispatch loop of spec.md §4.2 until ShouldStop
// reports true and both this worker's deque and the steal attempt
// find nothing further.
func (w *Worker) Run(workerCount int) {
	log.Info("worker started", logger.Int("worker", w.Index))
	defer func() {
		log.Info("worker stopped", logger.Int("worker", w.Index))
		close(w.done)
	}()
	spin := w.hooks.SpinIterations
	if spin < 64 {
		spin = 64
	}
	if spin > 4096 {
		spin = 4096
	}

	for {
		// 1. Pop bottom.
		if h, ok := w.Deque.PopBottom(); ok {
			w.execute(h)
			continue
		}

		// 2. Steal from a random victim.
		if workerCount > 1 {
			if h, ok := w.stealOnce(); ok {
				w.execute(h)
				continue
			}
		}

		if w.hooks.ShouldStop() && w.Deque.Len() == 0 {
			return
		}

		// 3. Spin budget, then park on the scheduler's wake channel.
		if w.spinWait(spin) {
			continue
		}

		if w.hooks.ShouldStop() && w.Deque.Len() == 0 {
			return
		}

		w.park()
	}
}

func (w *Worker) execute(h task.Handle) {
	w.hooks.Execute(h, w.Index)
}

func (w *Worker) stealOnce() (task.Handle, bool) {
	victim := w.hooks.StealVictim(w.Index)
	if victim == w.Index {
		return task.Handle{}, false
	}
	return w.hooks.StealFrom(victim)
}

// spinWait busy-spins for up to n iterations, retrying pop/steal each
// time; it returns true if work was found and should be re-dispatched
// by the caller's loop (via `continue`).
func (w *Worker) spinWait(n int) bool {
	for i := 0; i < n; i++ {
		if h, ok := w.Deque.PopBottom(); ok {
			w.execute(h)
			return true
		}
		if h, ok := w.stealOnce(); ok {
			w.execute(h)
			return true
		}
		if w.hooks.ShouldStop() {
			return false
		}
	}
	return false
}

func (w *Worker) park() {
	w.parked.Store(true)
	defer w.parked.Store(false)

	// Capture WakeChan before the final empty check: notifyWorkers always
	// closes whatever channel was current at the moment it ran, so a
	// PushBottom+notify landing between this capture and the check below
	// is still guaranteed to close ch, even though the check finds
	// nothing. Capturing only after the check would let such a push swap
	// in a fresh channel that nothing ever closes again, stranding this
	// worker asleep with work sitting in its own deque.
	ch := w.hooks.WakeChan()
	if h, ok := w.Deque.PopBottom(); ok {
		w.parked.Store(false)
		w.execute(h)
		return
	}
	<-ch
}
