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

package queue

import (
	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

// Manager owns the Queue handle pool (spec.md §4.1 default capacity:
// 128).
type Manager struct {
	pool *handle.Pool[Queue]
}

// NewManager creates a Manager with the given fixed capacity.
func NewManager(capacity int) *Manager {
	return &Manager{pool: handle.New[Queue]("queue", capacity)}
}

// Create acquires a fresh Queue bound to job with the given attributes.
func (m *Manager) Create(job taskcore.JobID, attrs taskcore.QueueAttributes) (Handle, *Queue, error) {
	h, q, err := m.pool.Acquire(-1)
	if err != nil {
		return Handle{}, nil, err
	}
	q.Self = h
	q.Reset(job, attrs)
	return h, q, nil
}

// Lookup resolves a Queue handle.
func (m *Manager) Lookup(h Handle) (*Queue, bool) {
	return m.pool.Lookup(h)
}

// Delete releases a Queue back to the pool, failing with
// taskcore.ErrBusy while tasks remain enqueued or in flight.
func (m *Manager) Delete(h Handle) error {
	q, ok := m.pool.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	if q.Busy() {
		return taskcore.ErrBusy
	}
	return m.pool.Release(h)
}
