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

// Package scheduler implements the Scheduler component of spec.md
// §4.3 and §4.2's dispatch side: the submission path, worker wake-ups,
// cancellation orchestration, and termination. It is the glue between
// the Action Registry, the Task/Group/Queue descriptors, and the
// Worker deques; Node is a thin public-facing wrapper around it.
package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/lindb/common/pkg/logger"
	"go.uber.org/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/action"
	"github.com/taskcore/taskcore/group"
	"github.com/taskcore/taskcore/internal/metrics"
	"github.com/taskcore/taskcore/queue"
	"github.com/taskcore/taskcore/task"
	"github.com/taskcore/taskcore/worker"
)

var log = logger.GetLogger("Scheduler", "Dispatch")

// NoCallerWorker is passed as SubmitRequest.CallerWorker when the
// submission does not originate from inside an action running on a
// worker. Go has no ambient per-goroutine identity the way a
// thread-local would give a C/C++ runtime (spec.md §9's "thread-local
// index" pattern); instead the caller-locality hint of spec.md §4.3
// step 6a is threaded explicitly through the ActionContext already
// passed to every action, via Node.SubmitFrom.
const NoCallerWorker = -1

// SubmitRequest carries the Submission Path's inputs (spec.md §4.3).
type SubmitRequest struct {
	Job    taskcore.JobID
	Args   []byte
	Result []byte
	Attrs  taskcore.Attributes

	HasGroup bool
	Group    group.Handle
	HasQueue bool
	Queue    queue.Handle

	// CallerWorker is the worker index to prefer for locality (spec.md
	// §4.3 step 6a), or NoCallerWorker.
	CallerWorker int
}

// Scheduler owns the worker pool and drives every task through
// submission, dispatch, and completion signalling.
type Scheduler struct {
	actions *action.Registry
	tasks   *task.Manager
	groups  *group.Manager
	queues  *queue.Manager
	stats   *metrics.SchedulerStatistics

	workers []*worker.Worker

	stopFlag atomic.Bool
	inFlight atomic.Int32

	wakeMu sync.Mutex
	wake   chan struct{}

	rrCounter atomic.Uint32
	rng       *rand.Rand
	rngMu     sync.Mutex

	wg sync.WaitGroup
}

// Config bundles the pieces a Scheduler is built from; Node assembles
// one at Initialize.
type Config struct {
	WorkerCount    int
	SpinIterations int
	Actions        *action.Registry
	Tasks          *task.Manager
	Groups         *group.Manager
	Queues         *queue.Manager
	Stats          *metrics.SchedulerStatistics
}

// New constructs a Scheduler with workerCount idle workers; Start
// begins their dispatch loops.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		actions: cfg.Actions,
		tasks:   cfg.Tasks,
		groups:  cfg.Groups,
		queues:  cfg.Queues,
		stats:   cfg.Stats,
		wake:    make(chan struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // worker selection jitter, not security-sensitive
	}
	s.workers = make([]*worker.Worker, cfg.WorkerCount)
	for i := range s.workers {
		s.workers[i] = worker.New(i, worker.Hooks{
			StealVictim:    s.stealVictim,
			StealFrom:      s.stealFrom,
			Execute:        s.execute,
			WakeChan:       s.WakeChan,
			ShouldStop:     s.stopFlag.Load,
			SpinIterations: cfg.SpinIterations,
		})
	}
	return s
}

// Start launches one goroutine per worker.
func (s *Scheduler) Start() {
	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *worker.Worker) {
			defer s.wg.Done()
			w.Run(len(s.workers))
		}(w)
	}
}

// WorkerCount returns the number of workers the scheduler dispatches
// across.
func (s *Scheduler) WorkerCount() int { return len(s.workers) }

// WakeChan implements worker.Hooks.WakeChan: the swap-and-close
// broadcast idiom also used by group.Group's completion signal.
func (s *Scheduler) WakeChan() <-chan struct{} {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	return s.wake
}

func (s *Scheduler) notifyWorkers() {
	s.wakeMu.Lock()
	old := s.wake
	s.wake = make(chan struct{})
	s.wakeMu.Unlock()
	close(old)
}

func (s *Scheduler) stealVictim(self int) int {
	n := len(s.workers)
	if n <= 1 {
		return self
	}
	s.rngMu.Lock()
	v := s.rng.Intn(n - 1)
	s.rngMu.Unlock()
	if v >= self {
		v++
	}
	return v
}

func (s *Scheduler) stealFrom(victim int) (task.Handle, bool) {
	s.stats.StealAttempts.Inc()
	h, ok := s.workers[victim].Deque.StealTop()
	if ok {
		s.stats.StealSuccesses.Inc()
	}
	return h, ok
}

// chooseWorker implements spec.md §4.3 step 6: caller locality first,
// else the least-loaded worker, with round-robin as a tie-break among
// equally loaded workers.
func (s *Scheduler) chooseWorker(callerWorker int) int {
	if callerWorker >= 0 && callerWorker < len(s.workers) {
		return callerWorker
	}
	minLen := -1
	var candidates []int
	for i, w := range s.workers {
		l := w.Deque.Len()
		switch {
		case minLen == -1 || l < minLen:
			minLen = l
			candidates = candidates[:0]
			candidates = append(candidates, i)
		case l == minLen:
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	idx := int(s.rrCounter.Inc()-1) % len(candidates)
	return candidates[idx]
}

// dispatch pushes th onto numInstances worker deques (spec.md §4.3
// step 7: one push per instance, each invocation later deriving its
// own instance_num from Task.NextInstanceNum) and wakes workers.
func (s *Scheduler) dispatch(th task.Handle, numInstances int, callerWorker int) {
	for i := 0; i < numInstances; i++ {
		hint := NoCallerWorker
		if i == 0 {
			hint = callerWorker
		}
		idx := s.chooseWorker(hint)
		s.workers[idx].Deque.PushBottom(th)
	}
	s.notifyWorkers()
}

func (s *Scheduler) promoteToDeque(th task.Handle) {
	t, ok := s.tasks.Lookup(th)
	if !ok {
		return
	}
	t.MarkReady()
	s.dispatch(th, t.Attrs.NumInstances(), NoCallerWorker)
}
