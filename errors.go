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

// Package taskcore defines the error taxonomy shared by every
// scheduler package. Errors are plain sentinels: every public
// operation returns a status error rather than panicking or raising
// an exception, per the core's propagation policy.
package taskcore

import "errors"

// Invalid usage.
var (
	// ErrInvalidHandle is returned when a handle's generation does not
	// match the slot it indexes, or the slot is not in use.
	ErrInvalidHandle = errors.New("taskcore: invalid handle")
	// ErrUnknownJob is returned when no action is registered for a job id.
	ErrUnknownJob = errors.New("taskcore: unknown job")
	// ErrNoCompatibleAction is returned when actions exist for a job id
	// but none is enabled with an affinity overlapping the caller's.
	ErrNoCompatibleAction = errors.New("taskcore: no compatible action")
	// ErrAttrSize is returned when an attribute value is out of range
	// (a negative instance count or priority at submit).
	ErrAttrSize = errors.New("taskcore: invalid attribute size")
	// ErrDetached is returned by wait on a detached task.
	ErrDetached = errors.New("taskcore: task is detached")
	// ErrQueueDisabled is returned by submissions to a disabled queue.
	ErrQueueDisabled = errors.New("taskcore: queue is disabled")
)

// Resource exhaustion.
var (
	// ErrPoolExhausted is returned when a handle pool has no free slots.
	ErrPoolExhausted = errors.New("taskcore: pool exhausted")
	// ErrNoMemory is returned when a caller-supplied buffer cannot be
	// accommodated (e.g. zero-length result buffer for a job that
	// requires one).
	ErrNoMemory = errors.New("taskcore: no memory")
)

// Lifecycle.
var (
	// ErrNodeInitialised is returned by Initialize while a Node is
	// already live.
	ErrNodeInitialised = errors.New("taskcore: node already initialised")
	// ErrNodeNotInitialised is returned by any operation performed
	// before Initialize or after Finalize.
	ErrNodeNotInitialised = errors.New("taskcore: node not initialised")
	// ErrBusy is returned by delete operations while tasks are in flight.
	ErrBusy = errors.New("taskcore: busy")
)

// Transient.
var (
	// ErrTimeout is returned when a wait deadline is reached.
	ErrTimeout = errors.New("taskcore: timeout")
)

// Cancellation.
var (
	// ErrActionCancelled is the final status recorded for a task that
	// was cancelled before or during its run.
	ErrActionCancelled = errors.New("taskcore: action cancelled")
	// ErrActionPanicked is the final status recorded for a task whose
	// action function panicked; the panic is recovered, never crashes
	// the worker.
	ErrActionPanicked = errors.New("taskcore: action panicked")
)
