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

// Package pattern implements the higher-level parallel patterns
// spec.md §1 scopes as external collaborators of the core: "they
// submit tasks and block on completion; their algorithmic content is
// not part of the core." Everything here is built exclusively on the
// node package's public API — no pattern function reaches into
// scheduler, task, group, or queue internals.
//
// Every pattern here is driven through a single registered job
// (forEachJob), dispatched via the Task Descriptor's instances
// mechanism (spec.md §4.3 step 7): instance_num is already exactly
// the index a data-parallel pattern needs. A per-call closure can't
// travel through node_local_data (that belongs to the Action record,
// shared by every call using this job, not to one Submit), so each
// call hands its closure to a short-lived token in callbacks and
// passes only the token's id as the task's args.
package pattern

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/taskcore/taskcore"
	"github.com/taskcore/taskcore/node"
)

const forEachJob taskcore.JobID = 1 << 63

var (
	registerOnce sync.Once
	registerErr  error

	callbacks     sync.Map // map[uint64]func(int) error
	callbackNextID atomic.Uint64
)

func ensureRegistered() error {
	registerOnce.Do(func() {
		_, registerErr = node.RegisterAction(forEachJob, forEachAction, nil, nil)
	})
	return registerErr
}

func forEachAction(args []byte, _ []byte, _ any, ctx taskcore.ActionContext) {
	id := binary.BigEndian.Uint64(args)
	v, _ := callbacks.Load(id)
	f, _ := v.(func(int) error)
	if f == nil {
		return
	}
	if err := f(ctx.InstanceNum()); err != nil {
		ctx.SetStatus(err)
	}
}

// ForEach runs fn(i) for every i in [0, n) on the worker pool and
// waits for all of them, returning the first non-nil error any
// invocation reports (arbitrary among several, if more than one
// fails, matching the task's "first error wins" status rule).
func ForEach(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if err := ensureRegistered(); err != nil {
		return err
	}

	id := callbackNextID.Add(1)
	callbacks.Store(id, fn)
	defer callbacks.Delete(id)
	args := make([]byte, 8)
	binary.BigEndian.PutUint64(args, id)

	th, err := node.Submit(forEachJob, args, nil, node.SubmitOptions{
		Attrs: taskcore.Attributes{Instances: n},
	})
	if err != nil {
		callbacks.Delete(id)
		return err
	}
	status, err := node.Wait(th, -1)
	if err != nil {
		return err
	}
	return status
}

// Reduce runs fn(i) for every i in [0, n), combining each result with
// combine under a single spinlock-guarded accumulation slot, and returns the
// final accumulated value. zero is the identity/seed value.
func Reduce[T any](n int, zero T, fn func(i int) T, combine func(a, b T) T) (T, error) {
	if n <= 0 {
		return zero, nil
	}

	acc := newAccumulator(zero, combine)
	err := ForEach(n, func(i int) error {
		acc.add(fn(i))
		return nil
	})
	return acc.value(), err
}

// Scan computes an inclusive prefix sum of in using combine, writing
// n results into out (len(out) must be >= len(in)). It first computes
// each element's contribution in parallel via ForEach, then performs
// the sequential left-to-right fold the algorithm's dependency chain
// requires — parallelising only the embarrassingly-parallel mapping
// stage, matching spec.md §1's characterisation of scan as a pattern
// layered on top of, not replacing, sequential dependency chains.
func Scan[T any](in []T, out []T, combine func(a, b T) T) error {
	n := len(in)
	if n == 0 {
		return nil
	}
	mapped := make([]T, n)
	if err := ForEach(n, func(i int) error {
		mapped[i] = in[i]
		return nil
	}); err != nil {
		return err
	}
	out[0] = mapped[0]
	for i := 1; i < n; i++ {
		out[i] = combine(out[i-1], mapped[i])
	}
	return nil
}

// QuickSort sorts data in place using less, parallelising the two
// recursive partitions as sibling tasks once the slice is larger than
// sequentialThreshold, below which it falls back to a sequential
// insertion sort (parallel dispatch overhead dominates on tiny
// slices).
//
// Each recursive level blocks the worker running it on a nested
// ForEach/Wait; this needs at least two workers to make progress
// (spec.md doesn't forbid a single-worker Node, but a recursive,
// blocking pattern like this one can only ever deadlock on one).
func QuickSort[T any](data []T, less func(a, b T) bool) error {
	return quickSort(data, less, 0)
}

const sequentialThreshold = 256

func quickSort[T any](data []T, less func(a, b T) bool, depth int) error {
	if len(data) <= 1 {
		return nil
	}
	if len(data) <= sequentialThreshold || depth > 30 {
		insertionSort(data, less)
		return nil
	}

	p := partition(data, less)
	left, right := data[:p], data[p+1:]

	return ForEach(2, func(i int) error {
		if i == 0 {
			return quickSort(left, less, depth+1)
		}
		return quickSort(right, less, depth+1)
	})
}

func partition[T any](data []T, less func(a, b T) bool) int {
	pivot := data[len(data)-1]
	i := 0
	for j := 0; j < len(data)-1; j++ {
		if less(data[j], pivot) {
			data[i], data[j] = data[j], data[i]
			i++
		}
	}
	data[i], data[len(data)-1] = data[len(data)-1], data[i]
	return i
}

func insertionSort[T any](data []T, less func(a, b T) bool) {
	for i := 1; i < len(data); i++ {
		for j := i; j > 0 && less(data[j], data[j-1]); j-- {
			data[j], data[j-1] = data[j-1], data[j]
		}
	}
}

// MergeSort sorts a copy of data using less, splitting recursively
// into sibling tasks like QuickSort, and returns the sorted result
// (the merge step needs a scratch buffer, so unlike QuickSort this
// does not sort in place).
func MergeSort[T any](data []T, less func(a, b T) bool) ([]T, error) {
	out := make([]T, len(data))
	copy(out, data)
	if err := mergeSort(out, less, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeSort[T any](data []T, less func(a, b T) bool, depth int) error {
	if len(data) <= 1 {
		return nil
	}
	if len(data) <= sequentialThreshold || depth > 30 {
		insertionSort(data, less)
		return nil
	}

	mid := len(data) / 2
	left, right := data[:mid], data[mid:]
	if err := ForEach(2, func(i int) error {
		if i == 0 {
			return mergeSort(left, less, depth+1)
		}
		return mergeSort(right, less, depth+1)
	}); err != nil {
		return err
	}

	merged := make([]T, 0, len(data))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if less(right[j], left[i]) {
			merged = append(merged, right[j])
			j++
		} else {
			merged = append(merged, left[i])
			i++
		}
	}
	merged = append(merged, left[i:]...)
	merged = append(merged, right[j:]...)
	copy(data, merged)
	return nil
}

// Stage is one step of a Pipeline: it consumes in and produces the
// input for the next stage.
type Stage[T any] func(in T) (T, error)

// Pipeline runs every item through all stages in order, one task
// instance per item (spec.md §4.3 step 7's instance_num again serving
// as the item index). Because each instance drives its own item
// through the full stage sequence independently, distinct items
// genuinely occupy different stages at the same time — item i can be
// in stage 2 while item i-1 is still finishing stage 1 — rather than
// the whole batch advancing through one stage at a time in lockstep.
func Pipeline[T any](input []T, stages []Stage[T]) ([]T, error) {
	out := make([]T, len(input))
	copy(out, input)
	if err := ForEach(len(out), func(i int) error {
		v := out[i]
		for _, stage := range stages {
			nv, err := stage(v)
			if err != nil {
				return err
			}
			v = nv
		}
		out[i] = v
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
