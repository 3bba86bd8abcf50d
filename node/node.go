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

// Package node implements the Node component of spec.md §4.1/§6: the
// global singleton bring-up/teardown and the public entry points
// (initialize, finalize, register_action, create_group, create_queue,
// submit) that every other package sits behind.
package node

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/action"
	"github.com/taskcore/taskcore/affinity"
	"github.com/taskcore/taskcore/config"
	"github.com/taskcore/taskcore/group"
	"github.com/taskcore/taskcore/internal/metrics"
	"github.com/taskcore/taskcore/queue"
	"github.com/taskcore/taskcore/scheduler"
	"github.com/taskcore/taskcore/task"
)

// Node is the global runtime singleton (spec.md §3): bring-up,
// teardown, pools, registry, and the scheduler that drives them.
type Node struct {
	attrs taskcore.NodeAttributes

	actions *action.Registry
	tasks   *task.Manager
	groups  *group.Manager
	queues  *queue.Manager
	stats   *metrics.SchedulerStatistics
	collector *metrics.Collector

	sched *scheduler.Scheduler
}

var (
	mu      sync.Mutex
	current *Node
)

// Initialize brings up the global Node (spec.md §4.3's entry point
// "node.initialize"). It fails with taskcore.ErrNodeInitialised if a
// Node is already live; Finalize must be called before a second
// Initialize.
func Initialize(attrs taskcore.NodeAttributes) error {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return taskcore.ErrNodeInitialised
	}

	attrs = withDefaults(attrs)

	n := &Node{
		attrs:   attrs,
		actions: action.NewRegistry(attrs.ActionPoolSize),
		tasks:   task.NewManager(attrs.TaskPoolSize),
		groups:  group.NewManager(attrs.GroupPoolSize),
		queues:  queue.NewManager(attrs.QueuePoolSize),
		stats:   metrics.NewSchedulerStatistics(),
	}
	n.collector = metrics.NewCollector(n.stats)
	n.sched = scheduler.New(scheduler.Config{
		WorkerCount:    attrs.Workers,
		SpinIterations: attrs.SpinIterations,
		Actions:        n.actions,
		Tasks:          n.tasks,
		Groups:         n.groups,
		Queues:         n.queues,
		Stats:          n.stats,
	})
	n.sched.Start()

	current = n
	return nil
}

func withDefaults(attrs taskcore.NodeAttributes) taskcore.NodeAttributes {
	if attrs.Workers <= 0 {
		attrs.Workers = runtime.NumCPU()
	}
	if attrs.TaskPoolSize <= 0 {
		attrs.TaskPoolSize = config.DefaultTaskPoolSize
	}
	if attrs.GroupPoolSize <= 0 {
		attrs.GroupPoolSize = config.DefaultGroupPoolSize
	}
	if attrs.QueuePoolSize <= 0 {
		attrs.QueuePoolSize = config.DefaultQueuePoolSize
	}
	if attrs.ActionPoolSize <= 0 {
		attrs.ActionPoolSize = config.DefaultActionPoolSize
	}
	if attrs.FinalizeTimeout <= 0 {
		attrs.FinalizeTimeout = config.DefaultFinalizeTimeout
	}
	if attrs.SpinIterations <= 0 {
		attrs.SpinIterations = config.DefaultSpinIterations
	}
	return attrs
}

// Finalize tears down the global Node (spec.md §5): sets the stop
// flag, waits (bounded by the configured FinalizeTimeout) for
// in-flight tasks, then joins every worker.
func Finalize() error {
	mu.Lock()
	n := current
	current = nil
	mu.Unlock()
	if n == nil {
		return taskcore.ErrNodeNotInitialised
	}
	return n.sched.Finalize(n.attrs.FinalizeTimeout)
}

// Registerer exposes the Node's Prometheus collector for a caller to
// register with its own prometheus.Registerer (spec.md's ambient
// stack: the core has no runtime I/O of its own, so exporting is the
// embedder's responsibility).
func Registerer() (prometheus.Collector, error) {
	n, err := live()
	if err != nil {
		return nil, err
	}
	return n.collector, nil
}

func live() (*Node, error) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil, taskcore.ErrNodeNotInitialised
	}
	return current, nil
}

// RegisterAction implements node.register_action (spec.md §6).
func RegisterAction(jobID taskcore.JobID, fn taskcore.ActionFunc, nodeLocalData any, aff *affinity.Set) (action.Handle, error) {
	n, err := live()
	if err != nil {
		return action.Handle{}, err
	}
	return n.actions.Register(jobID, fn, nodeLocalData, aff)
}

// RegisterRemoteAction registers a remote-dispatch action back-end
// (spec.md §9's plugin back-ends, treated as an Action variant).
func RegisterRemoteAction(jobID taskcore.JobID, fn taskcore.ActionFunc, nodeLocalData any, aff *affinity.Set) (action.Handle, error) {
	n, err := live()
	if err != nil {
		return action.Handle{}, err
	}
	return n.actions.RegisterRemote(jobID, fn, nodeLocalData, aff)
}

// CreateGroup implements node.create_group (spec.md §6).
func CreateGroup() (group.Handle, error) {
	n, err := live()
	if err != nil {
		return group.Handle{}, err
	}
	h, _, err := n.groups.Create()
	return h, err
}

// DeleteGroup releases a group, failing with taskcore.ErrBusy while
// tasks are in flight (spec.md §4.4).
func DeleteGroup(h group.Handle) error {
	n, err := live()
	if err != nil {
		return err
	}
	return n.groups.Delete(h)
}

// CreateQueue implements node.create_queue (spec.md §6).
func CreateQueue(jobID taskcore.JobID, attrs taskcore.QueueAttributes) (queue.Handle, error) {
	n, err := live()
	if err != nil {
		return queue.Handle{}, err
	}
	h, _, err := n.queues.Create(jobID, attrs)
	return h, err
}

// DeleteQueue releases a queue, failing with taskcore.ErrBusy while
// tasks remain enqueued or in flight (spec.md §4.5).
func DeleteQueue(h queue.Handle) error {
	n, err := live()
	if err != nil {
		return err
	}
	return n.queues.Delete(h)
}

// EnableQueue / DisableQueue toggle whether a Queue accepts further
// submissions.
func EnableQueue(h queue.Handle) error {
	n, err := live()
	if err != nil {
		return err
	}
	q, ok := n.queues.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	q.Enable()
	return nil
}

func DisableQueue(h queue.Handle) error {
	n, err := live()
	if err != nil {
		return err
	}
	q, ok := n.queues.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	q.Disable()
	return nil
}

// SubmitOptions carries Submit's optional parameters.
type SubmitOptions struct {
	Attrs taskcore.Attributes

	Group   group.Handle
	InGroup bool

	Queue   queue.Handle
	InQueue bool
}

// Submit implements node.submit (spec.md §6), the common case where
// the caller is not itself running inside a worker.
func Submit(jobID taskcore.JobID, args, result []byte, opts SubmitOptions) (task.Handle, error) {
	return submitFrom(jobID, args, result, opts, scheduler.NoCallerWorker)
}

// SubmitFrom is Submit's locality-aware variant for recursive
// submission from inside an action (spec.md §4.3 step 6a: "caller
// worker if the caller is itself a worker"). ctx is the ActionContext
// the calling action received; Go has no ambient thread-local to
// detect this implicitly, so the action passes its own context.
func SubmitFrom(ctx taskcore.ActionContext, jobID taskcore.JobID, args, result []byte, opts SubmitOptions) (task.Handle, error) {
	return submitFrom(jobID, args, result, opts, ctx.WorkerIndex())
}

func submitFrom(jobID taskcore.JobID, args, result []byte, opts SubmitOptions, callerWorker int) (task.Handle, error) {
	n, err := live()
	if err != nil {
		return task.Handle{}, err
	}
	if opts.Attrs.Instances < 0 || opts.Attrs.Priority < 0 {
		return task.Handle{}, taskcore.ErrAttrSize
	}
	return n.sched.Submit(scheduler.SubmitRequest{
		Job:          jobID,
		Args:         args,
		Result:       result,
		Attrs:        opts.Attrs,
		HasGroup:     opts.InGroup,
		Group:        opts.Group,
		HasQueue:     opts.InQueue,
		Queue:        opts.Queue,
		CallerWorker: callerWorker,
	})
}

// Wait implements task.wait(timeout) (spec.md §4.8).
func Wait(h task.Handle, timeout time.Duration) (taskcore.Status, error) {
	n, err := live()
	if err != nil {
		return nil, err
	}
	return n.sched.Wait(h, timeout)
}

// Cancel implements task.cancel(status) (spec.md §4.6).
func Cancel(h task.Handle, status taskcore.Status) error {
	n, err := live()
	if err != nil {
		return err
	}
	return n.sched.Cancel(h, status)
}

// WaitAllGroup implements group.wait_all(timeout) (spec.md §4.4).
func WaitAllGroup(h group.Handle, timeout time.Duration) error {
	n, err := live()
	if err != nil {
		return err
	}
	g, ok := n.groups.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	return g.WaitAll(timeout)
}

// WaitAnyGroup implements group.wait_any(timeout) (spec.md §4.4).
func WaitAnyGroup(h group.Handle, timeout time.Duration) (task.Handle, error) {
	n, err := live()
	if err != nil {
		return task.Handle{}, err
	}
	g, ok := n.groups.Lookup(h)
	if !ok {
		return task.Handle{}, taskcore.ErrInvalidHandle
	}
	return g.WaitAny(timeout)
}

// WorkerCount reports the live Node's worker count, mostly useful for
// tests and the cmd/taskcored demo.
func WorkerCount() (int, error) {
	n, err := live()
	if err != nil {
		return 0, err
	}
	return n.sched.WorkerCount(), nil
}

// TasksInUse reports a snapshot of live task descriptors, the Go
// equivalent of spec.md §8 testable property 5's bytes_allocated().
func TasksInUse() (int, error) {
	n, err := live()
	if err != nil {
		return 0, err
	}
	return n.tasks.InUse(), nil
}
