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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

func newGroup() *Group {
	g := &Group{}
	g.Reset()
	return g
}

func TestGroup_WaitAll_NonBlockingCheck(t *testing.T) {
	g := newGroup()
	g.AddTask()
	assert.ErrorIs(t, g.WaitAll(0), taskcore.ErrTimeout)

	g.OnTaskCompleted(handle.Handle{Index: 1, Generation: 1})
	assert.NoError(t, g.WaitAll(0))
}

func TestGroup_WaitAll_BlocksUntilAllComplete(t *testing.T) {
	g := newGroup()
	g.AddTask()
	g.AddTask()

	done := make(chan error, 1)
	go func() { done <- g.WaitAll(-1) }()

	time.Sleep(10 * time.Millisecond)
	g.OnTaskCompleted(handle.Handle{Index: 1, Generation: 1})

	select {
	case <-done:
		t.Fatal("WaitAll returned before every task completed")
	case <-time.After(20 * time.Millisecond):
	}

	g.OnTaskCompleted(handle.Handle{Index: 2, Generation: 1})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitAll did not unblock once the last task completed")
	}
}

func TestGroup_WaitAll_CountsTasksAddedMidWait(t *testing.T) {
	g := newGroup()
	g.AddTask()

	done := make(chan error, 1)
	go func() { done <- g.WaitAll(-1) }()

	time.Sleep(10 * time.Millisecond)
	g.AddTask() // added while the wait is already blocked
	g.OnTaskCompleted(handle.Handle{Index: 1, Generation: 1})

	select {
	case <-done:
		t.Fatal("WaitAll returned before the task added mid-wait also completed")
	case <-time.After(20 * time.Millisecond):
	}

	g.OnTaskCompleted(handle.Handle{Index: 2, Generation: 1})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitAll did not unblock")
	}
}

func TestGroup_WaitAll_Timeout(t *testing.T) {
	g := newGroup()
	g.AddTask()
	start := time.Now()
	err := g.WaitAll(20 * time.Millisecond)
	assert.ErrorIs(t, err, taskcore.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestGroup_WaitAny_CompletionOrderNotSubmissionOrder(t *testing.T) {
	g := newGroup()
	g.AddTask()
	g.AddTask()
	g.AddTask()

	hSlow := handle.Handle{Index: 1, Generation: 1}
	hFast := handle.Handle{Index: 2, Generation: 1}
	hMid := handle.Handle{Index: 3, Generation: 1}

	// completion order deliberately differs from hSlow/hFast/hMid
	// declaration order, matching wait_any's FIFO-of-completions
	// contract rather than any task ordering.
	g.OnTaskCompleted(hFast)
	g.OnTaskCompleted(hMid)
	g.OnTaskCompleted(hSlow)

	first, err := g.WaitAny(0)
	assert.NoError(t, err)
	assert.Equal(t, hFast, first)

	second, err := g.WaitAny(0)
	assert.NoError(t, err)
	assert.Equal(t, hMid, second)

	third, err := g.WaitAny(0)
	assert.NoError(t, err)
	assert.Equal(t, hSlow, third)
}

func TestGroup_WaitAny_BlocksThenWakes(t *testing.T) {
	g := newGroup()
	g.AddTask()

	type result struct {
		h   handle.Handle
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := g.WaitAny(-1)
		done <- result{h, err}
	}()

	time.Sleep(10 * time.Millisecond)
	expect := handle.Handle{Index: 7, Generation: 1}
	g.OnTaskCompleted(expect)

	select {
	case r := <-done:
		assert.NoError(t, r.err)
		assert.Equal(t, expect, r.h)
	case <-time.After(time.Second):
		t.Fatal("WaitAny did not unblock after a completion")
	}
}

func TestGroup_Busy(t *testing.T) {
	g := newGroup()
	assert.False(t, g.Busy())
	g.AddTask()
	assert.True(t, g.Busy())
	g.OnTaskCompleted(handle.Handle{Index: 1, Generation: 1})
	assert.False(t, g.Busy())
}

func TestManager_DeleteFailsWhileBusy(t *testing.T) {
	m := NewManager(4)
	h, g, err := m.Create()
	assert.NoError(t, err)

	g.AddTask()
	assert.ErrorIs(t, m.Delete(h), taskcore.ErrBusy)

	g.OnTaskCompleted(handle.Handle{Index: 1, Generation: 1})
	assert.NoError(t, m.Delete(h))

	_, ok := m.Lookup(h)
	assert.False(t, ok)
}
