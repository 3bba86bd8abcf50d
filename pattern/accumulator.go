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

package pattern

import "github.com/taskcore/taskcore/internal/xsync"

// accumulator folds concurrent ForEach results into one value under a
// brief spinlock, reusing the same primitive that guards the Worker
// deque.
type accumulator[T any] struct {
	lock    xsync.Spinlock
	val     T
	combine func(a, b T) T
}

func newAccumulator[T any](zero T, combine func(a, b T) T) *accumulator[T] {
	return &accumulator[T]{val: zero, combine: combine}
}

func (a *accumulator[T]) add(v T) {
	a.lock.Lock()
	a.val = a.combine(a.val, v)
	a.lock.Unlock()
}

func (a *accumulator[T]) value() T {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.val
}
