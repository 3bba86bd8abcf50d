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

package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_EmptyMeansAllWorkers(t *testing.T) {
	var s Set
	assert.True(t, s.Empty())
	assert.False(t, s.Test(0))

	other := Of(3, 4)
	assert.True(t, s.Overlaps(other), "an empty set overlaps anything, meaning all workers allowed")
	assert.True(t, other.Overlaps(&s))
}

func TestSet_AddRemoveTest(t *testing.T) {
	s := New()
	s.Add(1)
	s.Add(2)
	assert.True(t, s.Test(1))
	assert.True(t, s.Test(2))
	assert.False(t, s.Test(3))
	assert.Equal(t, 2, s.Len())

	s.Remove(1)
	assert.False(t, s.Test(1))
	assert.Equal(t, 1, s.Len())
}

func TestSet_Overlaps(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4, 5)
	c := Of(6, 7)

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
}

func TestSet_Clone(t *testing.T) {
	a := Of(1, 2)
	b := a.Clone()
	b.Add(3)

	assert.Equal(t, 2, a.Len(), "mutating the clone must not affect the original")
	assert.Equal(t, 3, b.Len())
}

func TestSet_Workers(t *testing.T) {
	s := Of(5, 1, 3)
	assert.Equal(t, []int{1, 3, 5}, s.Workers())
}
