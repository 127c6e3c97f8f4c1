// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heapx

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHeap(t *testing.T) {
	require.NoError(t, Init())

	b := Malloc(128)
	require.NotNil(t, b)
	assert.Equal(t, 128, len(b))
	assert.Zero(t, uintptr(unsafe.Pointer(&b[0]))%8)

	for i := range b {
		b[i] = byte(i)
	}
	b = Realloc(b, 4096)
	require.NotNil(t, b)
	assert.Equal(t, 4096, len(b))
	for i := 0; i < 128; i++ {
		require.Equal(t, byte(i), b[i])
	}

	Free(b)
	assert.True(t, ValidateHeap())
	assert.Greater(t, Available(), 0)
}

func TestLazyInit(t *testing.T) {
	defaultAllocator = nil
	b := Malloc(64)
	require.NotNil(t, b)
	require.NotNil(t, defaultAllocator)
	Free(b)
	assert.True(t, ValidateHeap())
}

func TestBoundaries(t *testing.T) {
	require.NoError(t, Init())

	assert.Nil(t, Malloc(0))
	Free(nil)

	b := Realloc(nil, 32)
	require.NotNil(t, b)
	assert.Equal(t, 32, len(b))
	assert.Nil(t, Realloc(b, 0))
	Free(b)

	assert.True(t, ValidateHeap())
}

func TestInitResetsHeap(t *testing.T) {
	require.NoError(t, Init())
	avail := Available()

	require.NotNil(t, Malloc(1024))
	require.NotNil(t, Malloc(1024))
	assert.Less(t, Available(), avail)

	require.NoError(t, Init())
	assert.Equal(t, avail, Available())
	assert.True(t, ValidateHeap())
}
