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
	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/group"
	"github.com/taskcore/taskcore/task"
)

// Submit implements the Submission Path (spec.md §4.3).
func (s *Scheduler) Submit(req SubmitRequest) (task.Handle, error) {
	actionHandle, _, err := s.actions.Select(req.Job, req.Attrs.Affinity)
	if err != nil {
		return task.Handle{}, err
	}

	var grp *group.Group
	if req.HasGroup {
		g, ok := s.groups.Lookup(req.Group)
		if !ok {
			return task.Handle{}, taskcore.ErrInvalidHandle
		}
		grp = g
	}

	if req.HasQueue {
		q, ok := s.queues.Lookup(req.Queue)
		if !ok {
			return task.Handle{}, taskcore.ErrInvalidHandle
		}
		if !q.Enabled() {
			return task.Handle{}, taskcore.ErrQueueDisabled
		}
	}

	th, t, err := s.tasks.Acquire(req.CallerWorker)
	if err != nil {
		s.stats.TasksRejected.Inc()
		return task.Handle{}, err
	}

	t.Job = req.Job
	t.Action = actionHandle
	t.Args = req.Args
	t.Result = req.Result
	t.Attrs = req.Attrs
	if req.HasGroup {
		t.HasGroup = true
		t.Group = req.Group
	}
	if req.HasQueue {
		t.HasQueue = true
		t.Queue = req.Queue
	}

	s.stats.TasksSubmitted.Inc()
	s.inFlight.Inc()
	if grp != nil {
		grp.AddTask()
	}
	t.MarkPreReady()

	if req.HasQueue {
		s.submitQueued(th, t, req)
	} else {
		t.MarkReady()
		s.dispatch(th, t.Attrs.NumInstances(), req.CallerWorker)
	}

	return th, nil
}

func (s *Scheduler) submitQueued(th task.Handle, t *task.Task, req SubmitRequest) {
	q, ok := s.queues.Lookup(req.Queue)
	if !ok {
		// the queue vanished in the race window after Submit's
		// pre-check; treat like a pending cancellation so completion
		// signalling still runs.
		t.TryCancelPending(taskcore.ErrInvalidHandle)
		s.signalTask(th)
		return
	}

	promote, err := q.Enqueue(th)
	switch {
	case err != nil:
		// the queue was disabled in the race window; the task was
		// never registered in the queue's ordering bookkeeping, so
		// signal it directly rather than via the queue's Cancel path.
		t.TryCancelPending(err)
		s.signalTask(th)
	case promote:
		t.MarkReady()
		s.dispatch(th, t.Attrs.NumInstances(), req.CallerWorker)
	default:
		// stays in the queue's pending list; promoted later by Cancel
		// or an earlier in-flight task's completion release.
	}
}
