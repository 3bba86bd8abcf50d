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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/internal/handle"
)

func newOrderedQueue() *Queue {
	q := &Queue{}
	q.Reset(1, taskcore.QueueAttributes{Ordered: true})
	return q
}

func h(i uint32) handle.Handle { return handle.Handle{Index: i, Generation: 1} }

func TestQueue_Ordered_OnlyOneInFlight(t *testing.T) {
	q := newOrderedQueue()

	promote1, err := q.Enqueue(h(1))
	assert.NoError(t, err)
	assert.True(t, promote1, "the first task on an empty queue is promoted immediately")

	promote2, err := q.Enqueue(h(2))
	assert.NoError(t, err)
	assert.False(t, promote2, "a second task must wait while the ordered queue has one in flight")
}

func TestQueue_Ordered_RetireInOrderPromotesNext(t *testing.T) {
	q := newOrderedQueue()
	_, _ = q.Enqueue(h(1))
	_, _ = q.Enqueue(h(2))
	_, _ = q.Enqueue(h(3))

	toSignal, toPromote := q.Retire(h(1))
	assert.Equal(t, []handle.Handle{h(1)}, toSignal)
	assert.Equal(t, []handle.Handle{h(2)}, toPromote)

	toSignal, toPromote = q.Retire(h(2))
	assert.Equal(t, []handle.Handle{h(2)}, toSignal)
	assert.Equal(t, []handle.Handle{h(3)}, toPromote)
}

func TestQueue_Unordered_OutOfOrderFinishHoldsSignalBack(t *testing.T) {
	// With parallelism 2 two tasks run at once and can finish out of
	// order; Cancel's retain-order signalling logic must hold a later
	// task's signal back until every earlier enqueue-order slot has
	// been released.
	q := &Queue{}
	q.Reset(1, taskcore.QueueAttributes{Ordered: false, Parallelism: 2})

	p1, _ := q.Enqueue(h(1))
	p2, _ := q.Enqueue(h(2))
	p3, _ := q.Enqueue(h(3))
	assert.True(t, p1)
	assert.True(t, p2)
	assert.False(t, p3, "a third task waits once parallelism 2 is saturated")

	// h(2) finishes before h(1), but its completion signal must be held
	// back until h(1)'s signal has been released (retain-order).
	toSignal, toPromote := q.Retire(h(2))
	assert.Empty(t, toSignal, "h(2) finished early; its signal is held back behind h(1)")
	assert.Equal(t, []handle.Handle{h(3)}, toPromote, "a pending slot still opens up immediately")

	toSignal, toPromote = q.Retire(h(1))
	assert.Equal(t, []handle.Handle{h(1), h(2)}, toSignal, "h(1) releases its own signal and the held-back h(2) signal together")
	assert.Empty(t, toPromote)
}

func TestQueue_CancelPending_RemovesFromPendingList(t *testing.T) {
	q := newOrderedQueue()
	_, _ = q.Enqueue(h(1))
	_, _ = q.Enqueue(h(2))
	_, _ = q.Enqueue(h(3))

	toSignal, toPromote := q.Cancel(h(2), false)
	assert.Empty(t, toSignal, "h(1) hasn't finished yet; h(2)'s slot is just freed, not signalled")
	assert.Empty(t, toPromote, "no parallelism slot opened since h(2) was never in flight")

	toSignal, toPromote = q.Retire(h(1))
	assert.Equal(t, []handle.Handle{h(1), h(2)}, toSignal)
	assert.Equal(t, []handle.Handle{h(3)}, toPromote)
}

func TestQueue_Disabled_RejectsEnqueue(t *testing.T) {
	q := newOrderedQueue()
	q.Disable()
	assert.False(t, q.Enabled())

	_, err := q.Enqueue(h(1))
	assert.ErrorIs(t, err, taskcore.ErrQueueDisabled)

	q.Enable()
	assert.True(t, q.Enabled())
	promote, err := q.Enqueue(h(1))
	assert.NoError(t, err)
	assert.True(t, promote)
}

func TestQueue_Busy(t *testing.T) {
	q := newOrderedQueue()
	assert.False(t, q.Busy())

	_, _ = q.Enqueue(h(1))
	assert.True(t, q.Busy())

	_, _ = q.Retire(h(1))
	assert.False(t, q.Busy())
}

func TestManager_DeleteFailsWhileBusy(t *testing.T) {
	m := NewManager(4)
	handleQ, q, err := m.Create(1, taskcore.QueueAttributes{Ordered: true})
	assert.NoError(t, err)

	_, _ = q.Enqueue(h(1))
	assert.ErrorIs(t, m.Delete(handleQ), taskcore.ErrBusy)

	_, _ = q.Retire(h(1))
	assert.NoError(t, m.Delete(handleQ))
}
