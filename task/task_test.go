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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskcore/taskcore"
)

func newTask() *Task {
	tk := &Task{}
	tk.Reset()
	return tk
}

func TestTask_HappyPathLifecycle(t *testing.T) {
	tk := newTask()
	assert.Equal(t, StateCreated, tk.State())

	tk.MarkPreReady()
	assert.Equal(t, StatePreReady, tk.State())

	tk.MarkReady()
	assert.Equal(t, StateReady, tk.State())

	assert.True(t, tk.TryRun())
	assert.Equal(t, StateRunning, tk.State())
	assert.False(t, tk.TryRun(), "a task cannot be run twice")

	assert.True(t, tk.FinishInstance(), "single-instance task finishes on its first instance")
	tk.Complete()
	assert.Equal(t, StateCompleted, tk.State())

	tk.SignalDone()
	status, err := tk.Wait(-1)
	assert.NoError(t, err)
	assert.Nil(t, status)

	assert.True(t, tk.Retire())
	assert.Equal(t, StateRetired, tk.State())
	assert.False(t, tk.Retire(), "retiring twice must be a no-op")
}

func TestTask_MultiInstanceFinishesOnce(t *testing.T) {
	tk := newTask()
	tk.Attrs.Instances = 3
	tk.MarkPreReady()
	tk.MarkReady()
	assert.True(t, tk.TryRun())

	assert.False(t, tk.FinishInstance())
	assert.False(t, tk.FinishInstance())
	assert.True(t, tk.FinishInstance(), "only the last of three instances reports done")
}

func TestTask_NextInstanceNum(t *testing.T) {
	tk := newTask()
	assert.Equal(t, 0, tk.NextInstanceNum())
	assert.Equal(t, 1, tk.NextInstanceNum())
	assert.Equal(t, 2, tk.NextInstanceNum())
}

func TestTask_TryCancelReady(t *testing.T) {
	tk := newTask()
	tk.MarkPreReady()
	tk.MarkReady()

	assert.True(t, tk.TryCancelReady(nil))
	assert.Equal(t, StateCompleted, tk.State())
	assert.ErrorIs(t, tk.Status(), taskcore.ErrActionCancelled)

	assert.False(t, tk.TryCancelReady(nil), "a task already cancelled cannot be cancelled again")
}

func TestTask_TryCancelPending(t *testing.T) {
	tk := newTask()
	tk.MarkPreReady()

	custom := taskcore.ErrQueueDisabled
	assert.True(t, tk.TryCancelPending(custom))
	assert.Equal(t, StateCompleted, tk.State())
	assert.ErrorIs(t, tk.Status(), custom)
}

func TestTask_TryCancelReady_FailsOnceRunning(t *testing.T) {
	tk := newTask()
	tk.MarkPreReady()
	tk.MarkReady()
	assert.True(t, tk.TryRun())

	assert.False(t, tk.TryCancelReady(nil), "a running task is past the Ready->Completed cancel window")
}

func TestTask_SetStatus_FirstErrorWins(t *testing.T) {
	tk := newTask()
	tk.SetStatus(taskcore.ErrActionPanicked)
	tk.SetStatus(taskcore.ErrTimeout)
	assert.ErrorIs(t, tk.Status(), taskcore.ErrActionPanicked)
}

func TestTask_SetStatus_NilNeverOverwrites(t *testing.T) {
	tk := newTask()
	tk.SetStatus(taskcore.ErrTimeout)
	tk.SetStatus(nil)
	assert.ErrorIs(t, tk.Status(), taskcore.ErrTimeout)
}

func TestTask_Wait_NonBlockingCheck(t *testing.T) {
	tk := newTask()
	_, err := tk.Wait(0)
	assert.ErrorIs(t, err, taskcore.ErrTimeout)
}

func TestTask_Wait_BoundedTimeout(t *testing.T) {
	tk := newTask()
	start := time.Now()
	_, err := tk.Wait(20 * time.Millisecond)
	assert.ErrorIs(t, err, taskcore.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTask_Wait_NegativeBlocksUntilSignalled(t *testing.T) {
	tk := newTask()
	done := make(chan struct{})
	go func() {
		defer close(done)
		status, err := tk.Wait(-1)
		assert.NoError(t, err)
		assert.Nil(t, status)
	}()

	time.Sleep(10 * time.Millisecond)
	tk.SignalDone()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait(-1) did not unblock after SignalDone")
	}
}

func TestTask_Wait_Detached(t *testing.T) {
	tk := newTask()
	tk.Attrs.IsDetached = true
	_, err := tk.Wait(-1)
	assert.ErrorIs(t, err, taskcore.ErrDetached)
}

func TestTask_ReadyForRetire(t *testing.T) {
	tk := newTask()
	assert.False(t, tk.ReadyForRetire())

	tk.SignalDone()
	_, _ = tk.Wait(-1)
	assert.True(t, tk.ReadyForRetire())

	detached := newTask()
	detached.Attrs.IsDetached = true
	assert.True(t, detached.ReadyForRetire(), "a detached task is always retire-eligible")
}
