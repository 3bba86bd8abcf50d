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
	"errors"

	"github.com/lindb/common/pkg/logger"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/task"
)

// execute implements worker.Hooks.Execute: the Ready -> Running ->
// Completed half of spec.md §4.2's dispatch loop, including panic
// recovery (the runtime never lets a misbehaving action crash a
// worker) and §4.6's cooperative-cancellation check.
func (s *Scheduler) execute(h task.Handle, workerIndex int) {
	t, ok := s.tasks.Lookup(h)
	if !ok {
		return
	}
	if !t.TryRun() && t.State() != task.StateRunning {
		// cancelled while Ready (or already completed): nothing left to
		// execute here. A multi-instance task's later deque entries find
		// it already Running and run their own instance.
		return
	}

	instanceNum := t.NextInstanceNum()
	numInstances := t.Attrs.NumInstances()
	ctx := task.NewExecContext(t, instanceNum, numInstances, workerIndex)

	s.runAction(t, ctx)

	if t.FinishInstance() {
		t.Complete()
		s.releaseFromQueueAndSignal(t, true)
	}
}

func (s *Scheduler) runAction(t *task.Task, ctx taskcore.ActionContext) {
	defer func() {
		if r := recover(); r != nil {
			t.SetStatus(taskcore.ErrActionPanicked)
			s.stats.ActionsPanicked.Inc()
			log.Error("action panicked", logger.Any("job", t.Job), logger.Any("recovered", r))
		}
	}()

	if t.ShouldCancel() {
		t.SetStatus(taskcore.ErrActionCancelled)
		return
	}

	rec, ok := s.actions.Lookup(t.Action)
	if !ok {
		t.SetStatus(taskcore.ErrUnknownJob)
		return
	}
	rec.Func(t.Args, t.Result, rec.NodeLocalData, ctx)
}

// releaseFromQueueAndSignal routes a finished (or cancelled) task
// through its Queue's retain-order release, if any, then signals
// completion for every handle the queue says has now earned its turn
// (spec.md §4.5). A non-queued task is always its own turn.
func (s *Scheduler) releaseFromQueueAndSignal(t *task.Task, wasPromoted bool) {
	if t.HasQueue {
		if q, ok := s.queues.Lookup(t.Queue); ok {
			toSignal, toPromote := q.Cancel(t.Self, wasPromoted)
			for _, sig := range toSignal {
				s.signalTask(sig)
			}
			for _, pro := range toPromote {
				s.promoteToDeque(pro)
			}
			return
		}
	}
	s.signalTask(t.Self)
}

// signalTask runs the full completion-signalling pipeline for one
// task whose turn has arrived: the complete_function callback, Group
// decrement/FIFO push, waking any Wait, and (for a detached task)
// immediate retirement (spec.md §4.6, §4.8).
func (s *Scheduler) signalTask(h task.Handle) {
	t, ok := s.tasks.Lookup(h)
	if !ok {
		return
	}

	status := t.Status()
	if t.Attrs.Complete != nil {
		t.Attrs.Complete(status)
	}
	if t.HasGroup {
		if g, ok := s.groups.Lookup(t.Group); ok {
			g.OnTaskCompleted(h)
		}
	}
	t.SignalDone()

	switch {
	case status == nil:
		s.stats.TasksCompleted.Inc()
	case errors.Is(status, taskcore.ErrActionCancelled):
		s.stats.TasksCancelled.Inc()
	default:
		s.stats.TasksErrored.Inc()
	}
	s.inFlight.Dec()

	if t.ReadyForRetire() {
		s.retireTask(t)
	}
}

func (s *Scheduler) retireTask(t *task.Task) {
	if !t.Retire() {
		return
	}
	_ = s.tasks.Release(t.Self)
}
