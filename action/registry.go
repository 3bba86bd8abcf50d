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

// Package action implements the Action Registry of spec.md §4.1's
// table and §3's Action entity: it maps a job id to one or more
// action functions and selects among them by affinity at submit time.
package action

import (
	"sync"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/affinity"
	"github.com/taskcore/taskcore/internal/handle"
)

// Handle identifies one registered Action record.
type Handle = handle.Handle

// Kind distinguishes the action's back-end, per spec.md §9's note that
// plugin back-ends are "variants of the Action entity, not a separate
// system".
type Kind int

const (
	// KindLocal runs Func directly on the owning worker goroutine.
	KindLocal Kind = iota
	// KindRemote forwards the invocation to a remote peer, see
	// plugin/remote.
	KindRemote
	// KindAccelerator is a documented extension point for hardware
	// back-ends (OpenCL/FPGA per spec.md §9); taskcore has no concrete
	// binding for it, and no Registry method registers this kind.
	KindAccelerator
)

// Record is one registered action: a job id bound to a function (or
// remote/accelerator equivalent), its affinity, and node-local data.
type Record struct {
	JobID         taskcore.JobID
	Kind          Kind
	Func          taskcore.ActionFunc
	NodeLocalData any
	Affinity      *affinity.Set
	Enabled       bool

	registeredAt int // registration order, used for the dispatch tie-break
}

// Registry maps job ids to action records and selects among them at
// submit time (spec.md §4.3 step 1).
type Registry struct {
	pool *handle.Pool[Record]

	mu      sync.RWMutex
	byJob   map[taskcore.JobID][]Handle
	counter int
}

// NewRegistry creates a Registry whose Action pool has the given fixed
// capacity (spec.md §4.1 default: 64).
func NewRegistry(capacity int) *Registry {
	return &Registry{
		pool:  handle.New[Record]("action", capacity),
		byJob: make(map[taskcore.JobID][]Handle),
	}
}

// Register adds an enabled action function under jobID with the given
// affinity (nil/empty means all workers). Multiple actions may share a
// job id; registration order is the dispatch tie-break (spec.md §9).
func (r *Registry) Register(jobID taskcore.JobID, fn taskcore.ActionFunc, nodeLocalData any, aff *affinity.Set) (Handle, error) {
	return r.register(jobID, KindLocal, fn, nodeLocalData, aff)
}

// RegisterRemote adds a remote-dispatch action (spec.md §9 plugin
// back-ends); fn performs the network round trip synchronously.
func (r *Registry) RegisterRemote(jobID taskcore.JobID, fn taskcore.ActionFunc, nodeLocalData any, aff *affinity.Set) (Handle, error) {
	return r.register(jobID, KindRemote, fn, nodeLocalData, aff)
}

func (r *Registry) register(jobID taskcore.JobID, kind Kind, fn taskcore.ActionFunc, nodeLocalData any, aff *affinity.Set) (Handle, error) {
	h, rec, err := r.pool.Acquire(-1)
	if err != nil {
		return Handle{}, err
	}
	r.mu.Lock()
	r.counter++
	*rec = Record{
		JobID:         jobID,
		Kind:          kind,
		Func:          fn,
		NodeLocalData: nodeLocalData,
		Affinity:      aff,
		Enabled:       true,
		registeredAt:  r.counter,
	}
	r.byJob[jobID] = append(r.byJob[jobID], h)
	r.mu.Unlock()
	return h, nil
}

// Enable / Disable toggle whether an action participates in dispatch
// selection without removing its registration.
func (r *Registry) Enable(h Handle) error  { return r.setEnabled(h, true) }
func (r *Registry) Disable(h Handle) error { return r.setEnabled(h, false) }

func (r *Registry) setEnabled(h Handle, enabled bool) error {
	rec, ok := r.pool.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	r.mu.Lock()
	rec.Enabled = enabled
	r.mu.Unlock()
	return nil
}

// Select resolves a job id plus a caller-requested affinity to the
// action to dispatch, per spec.md §4.3 step 1: first enabled action
// whose affinity overlaps the caller's (registration order).
//
// Returns taskcore.ErrUnknownJob if no action is registered for jobID
// at all, or taskcore.ErrNoCompatibleAction if actions exist but none
// is both enabled and affinity-compatible.
func (r *Registry) Select(jobID taskcore.JobID, callerAffinity *affinity.Set) (Handle, *Record, error) {
	r.mu.RLock()
	handles := append([]Handle(nil), r.byJob[jobID]...)
	r.mu.RUnlock()

	if len(handles) == 0 {
		return Handle{}, nil, taskcore.ErrUnknownJob
	}

	var bestHandle Handle
	var best *Record
	for _, h := range handles {
		rec, ok := r.pool.Lookup(h)
		if !ok || !rec.Enabled {
			continue
		}
		if !rec.Affinity.Overlaps(callerAffinity) {
			continue
		}
		if best == nil || rec.registeredAt < best.registeredAt {
			best, bestHandle = rec, h
		}
	}
	if best == nil {
		return Handle{}, nil, taskcore.ErrNoCompatibleAction
	}
	return bestHandle, best, nil
}

// Lookup returns the action record for h, if live.
func (r *Registry) Lookup(h Handle) (*Record, bool) {
	return r.pool.Lookup(h)
}
