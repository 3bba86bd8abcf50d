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

package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskcore/taskcore"
)

func TestPool_AcquireRelease(t *testing.T) {
	p := New[int]("test", 2)
	assert.Equal(t, 2, p.Capacity())
	assert.Equal(t, 0, p.InUse())

	h1, v1, err := p.Acquire(-1)
	assert.NoError(t, err)
	*v1 = 42
	assert.Equal(t, 1, p.InUse())

	h2, _, err := p.Acquire(-1)
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, _, err = p.Acquire(-1)
	assert.ErrorIs(t, err, taskcore.ErrPoolExhausted)

	got, ok := p.Lookup(h1)
	assert.True(t, ok)
	assert.Equal(t, 42, *got)

	assert.NoError(t, p.Release(h1))
	assert.Equal(t, 1, p.InUse())

	_, ok = p.Lookup(h1)
	assert.False(t, ok, "a released handle must not resolve")
}

func TestPool_StaleHandleAfterRelease(t *testing.T) {
	p := New[int]("test", 1)
	h1, _, err := p.Acquire(-1)
	assert.NoError(t, err)
	assert.NoError(t, p.Release(h1))

	h2, _, err := p.Acquire(-1)
	assert.NoError(t, err)
	assert.NotEqual(t, h1.Generation, h2.Generation)

	_, ok := p.Lookup(h1)
	assert.False(t, ok, "a handle from a retired generation must never resolve to the new occupant")

	assert.ErrorIs(t, p.Release(h1), taskcore.ErrInvalidHandle)
}

func TestPool_ReleaseUnknownHandle(t *testing.T) {
	p := New[int]("test", 1)
	assert.ErrorIs(t, p.Release(Handle{Index: 0, Generation: 99}), taskcore.ErrInvalidHandle)
	assert.ErrorIs(t, p.Release(Handle{Index: 5, Generation: 1}), taskcore.ErrInvalidHandle)
}

func TestHandle_Valid(t *testing.T) {
	assert.False(t, Handle{}.Valid())
	assert.True(t, Handle{Index: 0, Generation: 1}.Valid())
}
