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

// Package affinity implements the Affinity Set component of spec.md
// §2: a bitset over worker indices, carried by actions and by task
// attributes. The Action Registry compares the two at submit time to
// pick an action; worker choice and work stealing do not consult it.
//
// The bitset is backed by github.com/lindb/roaring, the same roaring
// bitmap library the teacher corpus uses for bitmaps over series and
// tag ids (pkg/encoding/bitmap.go, index/grouping.go). Worker counts
// are small (bounded by core count) so a roaring bitmap is heavier
// than strictly necessary, but it keeps the affinity, encoding, and
// index packages on one bitset implementation rather than introducing
// a second one just for this narrow case.
package affinity

import "github.com/lindb/roaring"

// Set is a bitset of worker indices. The zero value is a valid, empty
// Set meaning "no worker index recorded"; per spec.md §6, an empty
// affinity attribute means "all workers allowed" — callers distinguish
// that case with Empty, not by testing individual bits.
type Set struct {
	bitmap *roaring.Bitmap
}

// New returns an empty affinity Set.
func New() *Set {
	return &Set{bitmap: roaring.New()}
}

// Of returns a Set containing exactly the given worker indices.
func Of(workers ...int) *Set {
	s := New()
	for _, w := range workers {
		s.Add(w)
	}
	return s
}

// Add marks worker index w as allowed.
func (s *Set) Add(w int) {
	s.ensure()
	s.bitmap.Add(uint32(w))
}

// Remove clears worker index w.
func (s *Set) Remove(w int) {
	if s.bitmap == nil {
		return
	}
	s.bitmap.Remove(uint32(w))
}

// Test reports whether worker index w is set.
func (s *Set) Test(w int) bool {
	if s.bitmap == nil {
		return false
	}
	return s.bitmap.Contains(uint32(w))
}

// Empty reports whether the set has no worker indices recorded, which
// per spec.md §6 means "all workers allowed".
func (s *Set) Empty() bool {
	return s == nil || s.bitmap == nil || s.bitmap.IsEmpty()
}

// Overlaps reports whether s and other share at least one worker
// index, or either side is Empty (meaning "all workers"). Used by the
// Action Registry's dispatch tie-break (spec.md §4.3 step 1).
func (s *Set) Overlaps(other *Set) bool {
	if s.Empty() || other.Empty() {
		return true
	}
	return s.bitmap.Intersects(other.bitmap)
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	if s.Empty() {
		return New()
	}
	return &Set{bitmap: s.bitmap.Clone()}
}

// Len returns the number of worker indices recorded.
func (s *Set) Len() int {
	if s.bitmap == nil {
		return 0
	}
	return int(s.bitmap.GetCardinality())
}

// Workers returns the sorted worker indices recorded in s.
func (s *Set) Workers() []int {
	if s.bitmap == nil {
		return nil
	}
	arr := s.bitmap.ToArray()
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}

func (s *Set) ensure() {
	if s.bitmap == nil {
		s.bitmap = roaring.New()
	}
}

func (s *Set) String() string {
	if s.Empty() {
		return "affinity{all}"
	}
	return "affinity" + s.bitmap.String()
}
