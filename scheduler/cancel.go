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

package scheduler

import (
	"time"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/task"
)

// Cancel implements task.cancel(status) (spec.md §4.6): it is
// wait-free and idempotent. A task still PreReady (queued but never
// promoted) or Ready (attached to a deque/queue head, not yet
// running) is completed immediately with status, action never
// invoked. A Running task only has its cooperative flag set; it must
// observe should_cancel() itself. A task already Completed or later
// is a no-op.
func (s *Scheduler) Cancel(h task.Handle, status taskcore.Status) error {
	t, ok := s.tasks.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	t.RequestCancel()

	if t.TryCancelPending(status) {
		s.releaseFromQueueAndSignal(t, false)
		return nil
	}
	if t.TryCancelReady(status) {
		s.releaseFromQueueAndSignal(t, true)
		return nil
	}
	// Running, Completed, or Retired: nothing more to do here. A
	// Running action observes ShouldCancel via its context; Completed
	// and Retired make cancel a documented no-op.
	return nil
}

// Wait implements task.wait(timeout) (spec.md §4.8), additionally
// retiring the descriptor back to its pool once a non-detached task
// is observed complete — the owning Go equivalent of "destroyed when
// no waiter holds a reference".
func (s *Scheduler) Wait(h task.Handle, timeout time.Duration) (taskcore.Status, error) {
	t, ok := s.tasks.Lookup(h)
	if !ok {
		return nil, taskcore.ErrInvalidHandle
	}
	status, err := t.Wait(timeout)
	if err != nil {
		return nil, err
	}
	s.retireTask(t)
	return status, nil
}

// Finalize implements node.finalize (spec.md §5): set the global stop
// flag, wait up to timeout for every in-flight task to finish (a
// negative timeout waits forever, zero performs a single check), then
// always join every worker goroutine — the runtime never kills
// threads, so a timeout here is reported but does not abandon the
// join.
func (s *Scheduler) Finalize(timeout time.Duration) error {
	s.stopFlag.Store(true)
	s.notifyWorkers()

	timedOut := s.waitForDrain(timeout)
	s.wg.Wait()

	if timedOut {
		return taskcore.ErrTimeout
	}
	return nil
}

func (s *Scheduler) waitForDrain(timeout time.Duration) bool {
	if s.inFlight.Load() <= 0 {
		return false
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	const pollInterval = time.Millisecond
	for s.inFlight.Load() > 0 {
		if timeout == 0 {
			return true
		}
		if timeout > 0 && time.Now().After(deadline) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}
