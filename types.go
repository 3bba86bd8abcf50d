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

package taskcore

import (
	"time"

	"github.com/taskcore/taskcore/affinity"
)

// JobID names an operation defined by the application, resolved to
// zero or more Actions by the Action Registry (spec.md §3).
type JobID uint64

// Status is the final outcome of a task. nil means success; spec.md
// §7 enumerates the sentinel errors a Status may be.
type Status = error

// ActionContext is passed to every action invocation (spec.md §4.7).
type ActionContext interface {
	// InstanceNum returns this invocation's index among NumInstances
	// parallel copies of the same task.
	InstanceNum() int
	// NumInstances returns the total number of parallel copies.
	NumInstances() int
	// WorkerIndex returns the index of the worker running this action.
	WorkerIndex() int
	// ShouldCancel reports whether cooperative cancellation has been
	// requested for this task (spec.md §4.6).
	ShouldCancel() bool
	// SetStatus overrides the task's final status once the action
	// returns, e.g. to ErrActionCancelled or a user-defined error.
	SetStatus(status Status)
}

// ActionFunc is the signature every registered action function has
// (spec.md §3): it reads args, writes into result, and observes ctx
// for cancellation and node-local data.
type ActionFunc func(args []byte, result []byte, nodeLocalData any, ctx ActionContext)

// CompleteFunc is the optional callback attribute invoked after a
// task's action returns (spec.md §3, "complete_function").
type CompleteFunc func(status Status)

// Attributes carries the optional submission-time settings described
// by spec.md §6's attribute table.
type Attributes struct {
	// Priority is a hint (0 = highest). Submit rejects a negative value;
	// the workers' dispatch order does not consult it.
	Priority int
	// Affinity selects, at submit time, an action whose own affinity
	// overlaps it; a nil or empty set overlaps every action. Worker
	// choice and work stealing do not consult it, so the task may run
	// on any worker.
	Affinity *affinity.Set
	// Instances is the number of parallel copies of the task; the
	// default, zero value, means one instance.
	Instances int
	// IsDetached means the caller will never call Wait; the pool
	// reclaims the task eagerly on completion instead of waiting for a
	// waiter to release it.
	IsDetached bool
	// Complete is invoked after the action returns, before the task's
	// descriptor is retired.
	Complete CompleteFunc
}

// NumInstances returns the effective instance count, defaulting to 1.
func (a Attributes) NumInstances() int {
	if a.Instances <= 0 {
		return 1
	}
	return a.Instances
}

// QueueAttributes configures a Queue (spec.md §4.5 / §6).
type QueueAttributes struct {
	// Ordered selects strict FIFO execution: at most one task from the
	// queue runs at a time. The zero value is false, but an unordered
	// queue with the default Parallelism also runs one task at a time.
	Ordered bool
	// Parallelism bounds concurrently running tasks for an unordered
	// queue; ignored when Ordered is true. Zero/negative means 1.
	Parallelism int
}

// EffectiveParallelism returns the usable parallelism for an unordered
// queue, defaulting to 1.
func (a QueueAttributes) EffectiveParallelism() int {
	if a.Ordered {
		return 1
	}
	if a.Parallelism <= 0 {
		return 1
	}
	return a.Parallelism
}

// NodeAttributes configures Node.Initialize (spec.md §6).
type NodeAttributes struct {
	// Workers is the worker count; zero means logical CPU count.
	Workers int
	// TaskPoolSize, GroupPoolSize, QueuePoolSize, ActionPoolSize size the
	// handle pools; zero means the spec.md §4.1 defaults.
	TaskPoolSize   int
	GroupPoolSize  int
	QueuePoolSize  int
	ActionPoolSize int
	// FinalizeTimeout bounds how long Finalize waits for in-flight
	// tasks to retire before reporting ErrTimeout (spec.md §5).
	FinalizeTimeout time.Duration
	// SpinIterations bounds the dispatch-loop spin budget before a
	// worker parks (spec.md §4.2 step 3); clamped to [64, 4096].
	SpinIterations int
}
