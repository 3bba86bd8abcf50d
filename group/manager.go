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

package group

import (
	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

// Manager owns the Group handle pool (spec.md §4.1 default capacity:
// 128).
type Manager struct {
	pool *handle.Pool[Group]
}

// NewManager creates a Manager with the given fixed capacity.
func NewManager(capacity int) *Manager {
	return &Manager{pool: handle.New[Group]("group", capacity)}
}

// Create acquires a fresh Group.
func (m *Manager) Create() (Handle, *Group, error) {
	h, g, err := m.pool.Acquire(-1)
	if err != nil {
		return Handle{}, nil, err
	}
	g.Self = h
	g.Reset()
	return h, g, nil
}

// Lookup resolves a Group handle.
func (m *Manager) Lookup(h Handle) (*Group, bool) {
	return m.pool.Lookup(h)
}

// Delete releases a Group back to the pool. It fails fast with
// taskcore.ErrBusy while tasks are in flight, per spec.md §4.4's
// chosen (fail-fast) semantics for the Open Question on delete.
func (m *Manager) Delete(h Handle) error {
	g, ok := m.pool.Lookup(h)
	if !ok {
		return taskcore.ErrInvalidHandle
	}
	if g.Busy() {
		return taskcore.ErrBusy
	}
	return m.pool.Release(h)
}
