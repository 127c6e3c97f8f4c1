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

// Package segment provides a page-granular, contiguously growing memory
// region for the heap allocator to manage. The whole reservation is
// acquired up front so the base address never moves; growing the segment
// only extends the mapped length inside the reservation.
package segment

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// PageSize is the granularity of segment growth.
const PageSize = 4096

// Segment is a contiguous memory region that grows at its tail in whole
// pages. The zero value is not usable; obtain one from New.
type Segment struct {
	buf    []byte // full reservation; buf[:mapped] is the live region
	mapped int
}

// New reserves maxBytes of backing memory, rounded up to a page
// multiple. The segment starts with no pages mapped; call Init to map
// the initial pages.
func New(maxBytes int) (*Segment, error) {
	if maxBytes < PageSize {
		return nil, fmt.Errorf("segment: reservation must be at least one page (%d bytes), got %d", PageSize, maxBytes)
	}
	maxBytes = (maxBytes + PageSize - 1) &^ (PageSize - 1)
	return &Segment{buf: dirtmake.Bytes(maxBytes, maxBytes)}, nil
}

// Init maps the first pages of the reservation and returns the base
// address. Calling Init again resets the mapped length, discarding any
// previous contents.
func (s *Segment) Init(pages int) (unsafe.Pointer, error) {
	if pages <= 0 {
		return nil, fmt.Errorf("segment: init page count must be positive, got %d", pages)
	}
	n := pages * PageSize
	if n > len(s.buf) {
		return nil, fmt.Errorf("segment: init of %d pages exceeds %d byte reservation", pages, len(s.buf))
	}
	s.mapped = n
	return unsafe.Pointer(&s.buf[0]), nil
}

// Extend grows the mapped region by the given number of pages at its
// tail. The base address is unchanged. On error nothing is mapped.
func (s *Segment) Extend(pages int) error {
	if pages <= 0 {
		return fmt.Errorf("segment: extend page count must be positive, got %d", pages)
	}
	n := s.mapped + pages*PageSize
	if n > len(s.buf) {
		return fmt.Errorf("segment: extend by %d pages exceeds %d byte reservation", pages, len(s.buf))
	}
	s.mapped = n
	return nil
}

// Size returns the mapped length in bytes.
func (s *Segment) Size() int {
	return s.mapped
}

// Base returns the segment base address, or nil before Init.
func (s *Segment) Base() unsafe.Pointer {
	if s.mapped == 0 {
		return nil
	}
	return unsafe.Pointer(&s.buf[0])
}
