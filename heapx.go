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

// Package heapx is a dynamic memory allocator over a contiguously
// growing page segment: a segregated free index with 52 size-class
// buckets, eager coalescing, and in-place realloc heuristics.
//
// This package is a thin facade over one default malloc.Allocator; use
// the malloc package directly for independent instances. The allocator
// is single-threaded by design: callers needing concurrent access must
// serialize externally.
package heapx

import (
	"github.com/cloudwego/heapx/malloc"
	"github.com/cloudwego/heapx/segment"
)

// DefaultReserve is the address-space reservation backing the default
// allocator.
const DefaultReserve = 64 << 20

var defaultAllocator *malloc.Allocator

// Init (re)initializes the default heap to its initial one-page
// configuration. All previously returned blocks are invalidated.
func Init() error {
	if defaultAllocator != nil {
		return defaultAllocator.Init()
	}
	seg, err := segment.New(DefaultReserve)
	if err != nil {
		return err
	}
	a, err := malloc.NewAllocator(seg)
	if err != nil {
		return err
	}
	defaultAllocator = a
	return nil
}

// Malloc returns a block of at least size bytes from the default heap,
// or nil when the request cannot be serviced. The heap is initialized on
// first use.
func Malloc(size int) []byte {
	if defaultAllocator == nil {
		if err := Init(); err != nil {
			return nil
		}
	}
	return defaultAllocator.Malloc(size)
}

// Free returns a block obtained from Malloc or Realloc to the default
// heap. Freeing nil or foreign memory is a no-op.
func Free(block []byte) {
	if defaultAllocator == nil {
		return
	}
	defaultAllocator.Free(block)
}

// Realloc resizes a block preserving its contents. A nil block is
// equivalent to Malloc; a non-positive size returns nil without freeing.
func Realloc(block []byte, size int) []byte {
	if defaultAllocator == nil {
		if err := Init(); err != nil {
			return nil
		}
	}
	return defaultAllocator.Realloc(block, size)
}

// ValidateHeap reports whether the default heap's structural invariants
// hold. A heap that was never initialized is trivially valid.
func ValidateHeap() bool {
	if defaultAllocator == nil {
		return true
	}
	return defaultAllocator.ValidateHeap()
}

// Available returns the free bytes, header inclusive, in the default
// heap.
func Available() int {
	if defaultAllocator == nil {
		return 0
	}
	return defaultAllocator.Available()
}
