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

import "github.com/taskcore/taskcore"

// execContext implements taskcore.ActionContext (spec.md §4.7) for one
// dispatched instance of a Task.
type execContext struct {
	task         *Task
	instanceNum  int
	numInstances int
	workerIndex  int
}

// NewExecContext builds the ActionContext passed to an action function
// for one instance of t running on the given worker.
func NewExecContext(t *Task, instanceNum, numInstances, workerIndex int) taskcore.ActionContext {
	return &execContext{
		task:         t,
		instanceNum:  instanceNum,
		numInstances: numInstances,
		workerIndex:  workerIndex,
	}
}

func (c *execContext) InstanceNum() int  { return c.instanceNum }
func (c *execContext) NumInstances() int { return c.numInstances }
func (c *execContext) WorkerIndex() int  { return c.workerIndex }
func (c *execContext) ShouldCancel() bool {
	return c.task.ShouldCancel()
}
func (c *execContext) SetStatus(status taskcore.Status) {
	c.task.SetStatus(status)
}
