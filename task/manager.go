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

package task

import (
	"github.com/taskcore/taskcore/internal/handle"
)

// Manager owns the Task handle pool (spec.md §4.1 default capacity:
// 1024).
type Manager struct {
	pool *handle.Pool[Task]
}

// NewManager creates a Manager with the given fixed capacity.
func NewManager(capacity int) *Manager {
	return &Manager{pool: handle.New[Task]("task", capacity)}
}

// Acquire obtains a fresh Task descriptor, biased toward hint (e.g. a
// worker's own previous slot) for locality. Returns
// taskcore.ErrPoolExhausted if the pool is full (spec.md §8 testable
// property 6).
func (m *Manager) Acquire(hint int) (Handle, *Task, error) {
	h, t, err := m.pool.Acquire(hint)
	if err != nil {
		return Handle{}, nil, err
	}
	t.Reset()
	t.Self = h
	return h, t, nil
}

// Lookup resolves a Task handle.
func (m *Manager) Lookup(h Handle) (*Task, bool) {
	return m.pool.Lookup(h)
}

// Release returns h's slot to the pool; the caller must first have
// driven the task through Retire.
func (m *Manager) Release(h Handle) error {
	return m.pool.Release(h)
}

// InUse returns a snapshot count of live task descriptors, for
// diagnostics and the bytes_allocated()-returns-to-0-on-finalize
// testable property (spec.md §8 testable property 5).
func (m *Manager) InUse() int {
	return m.pool.InUse()
}
