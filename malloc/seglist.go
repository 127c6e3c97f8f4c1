package malloc

import (
	"unsafe"

	"github.com/cloudwego/heapx/segment"
)

const (
	// initialPages is the wilderness size a fresh heap starts with.
	initialPages = 1

	// maxExtraPages caps the dynamic page-request inflation.
	maxExtraPages = 1

	// minSplitSize is the smallest remainder worth carving off a
	// best-fit block; anything less stays with the block as slack.
	minSplitSize = 176
)

// Allocator is a segregated-list heap allocator over a contiguously
// growing page segment. Freed blocks are indexed by size class in 52
// buckets of intrusive doubly-linked lists; never-allocated memory is a
// single wilderness block at the tail of the heap.
//
// An Allocator is single-threaded. Callers needing concurrent access
// must serialize externally.
type Allocator struct {
	seg        *segment.Segment
	heapStart  unsafe.Pointer
	wilderness *memblock

	buckets      [numBuckets]*memblock
	largestIndex int // highest non-empty bucket, -1 when all are empty

	extraPages int // dynamic inflation for the next page request
}

// NewAllocator creates an allocator over seg and initializes it to the
// one-page configuration.
func NewAllocator(seg *segment.Segment) (*Allocator, error) {
	a := &Allocator{seg: seg}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init resets the heap to a single wilderness block spanning the initial
// pages. All previously returned blocks are invalidated.
func (a *Allocator) Init() error {
	base, err := a.seg.Init(initialPages)
	if err != nil {
		return err
	}
	a.heapStart = base
	a.wilderness = (*memblock)(base)
	a.wilderness.prevsz = 0
	a.wilderness.size = pack(initialPages*segment.PageSize, false)
	for i := range a.buckets {
		a.buckets[i] = nil
	}
	a.largestIndex = -1
	a.extraPages = 1
	return nil
}

// prevContiguous returns the block immediately before b, or nil when b
// is the first block of the heap.
func (a *Allocator) prevContiguous(b *memblock) *memblock {
	if unsafe.Pointer(b) == a.heapStart {
		return nil
	}
	return (*memblock)(unsafe.Add(unsafe.Pointer(b), -int(b.prevSize())))
}

// findFit services a request from the free index: a perfect match in the
// request's own bucket first, then the first sufficiently large block in
// any bucket up to the largest-bucket hint, splitting when the slack is
// worth indexing. Returns nil on a miss.
func (a *Allocator) findFit(adjusted uint32) *memblock {
	idx := bucketIndex(adjusted)
	if a.buckets[idx] != nil {
		if b := a.takeFrom(idx, adjusted, perfectMatch); b != nil {
			markAllocated(b, adjusted)
			return b
		}
	}
	for i := idx; i <= a.largestIndex; i++ {
		b := a.takeFrom(i, adjusted, bestFit)
		if b == nil {
			continue
		}
		if got := b.blockSize(); got < adjusted+minSplitSize {
			markAllocated(b, got)
		} else {
			a.split(b, adjusted)
			markAllocated(b, adjusted)
		}
		return b
	}
	return nil
}

// split carves the leading adjusted bytes off b and returns the trailing
// remainder to the free index.
func (a *Allocator) split(b *memblock, adjusted uint32) {
	rem := (*memblock)(unsafe.Add(unsafe.Pointer(b), uintptr(adjusted)))
	markFreed(rem, b.blockSize()-adjusted)
	a.addBlock(rem)
}

// requestPages grows the segment by enough pages to cover adjusted bytes
// plus an amortization cushion. The wilderness is credited and the
// cushion grown only once the extend has succeeded, so a failure leaves
// the heap untouched.
func (a *Allocator) requestPages(adjusted uint32) error {
	pages := int(adjusted)/segment.PageSize + 1
	if a.extraPages > maxExtraPages {
		a.extraPages = maxExtraPages
	}
	pages += a.extraPages
	if err := a.seg.Extend(pages); err != nil {
		return err
	}
	a.extraPages++
	a.wilderness.size += uint32(pages * segment.PageSize)
	return nil
}

// carveWilderness takes adjusted bytes off the front of the wilderness
// and returns them as an allocated block.
func (a *Allocator) carveWilderness(adjusted uint32) *memblock {
	b := a.wilderness
	rest := b.blockSize() - adjusted
	a.wilderness = (*memblock)(unsafe.Add(unsafe.Pointer(b), uintptr(adjusted)))
	a.wilderness.size = pack(rest, false)
	markAllocated(b, adjusted)
	return b
}

// coalesce merges b with any free contiguous neighbors, leaving the
// successor's back-size consistent. The wilderness never participates.
func (a *Allocator) coalesce(b *memblock) *memblock {
	if n := b.nextContiguous(); n != a.wilderness && !n.allocated() {
		a.removeBlock(n, bucketIndex(n.blockSize()))
		b.size = pack(b.blockSize()+n.blockSize(), false)
	}
	if p := a.prevContiguous(b); p != nil && !p.allocated() {
		a.removeBlock(p, bucketIndex(p.blockSize()))
		p.size = pack(p.blockSize()+b.blockSize(), false)
		b = p
	}
	b.nextContiguous().prevsz = b.size
	return b
}

// Malloc returns a block of at least size usable bytes, or nil when the
// request cannot be serviced. The result has len equal to size and cap
// equal to the block's usable bytes; the data pointer is 8-aligned.
func (a *Allocator) Malloc(size int) []byte {
	if size <= 0 || size > maxRequestSize {
		return nil
	}
	adjusted := adjustSize(size)
	b := a.findFit(adjusted)
	if b == nil {
		if adjusted >= a.wilderness.blockSize() {
			if err := a.requestPages(adjusted); err != nil {
				return nil
			}
		}
		b = a.carveWilderness(adjusted)
	}
	return b.payloadSlice(size)
}

// Free returns a block obtained from Malloc or Realloc to the free pool,
// eagerly coalescing it with free neighbors. A freed block adjacent to
// the wilderness is absorbed into it instead of being indexed. Freeing
// nil or a pointer outside the live heap is a no-op; freeing the same
// block twice is undefined.
func (a *Allocator) Free(block []byte) {
	if cap(block) == 0 {
		return
	}
	// Bounds-check the raw data pointer before ever forming the header
	// address. Slice header access keeps this safe for zero-len slices.
	data := *(*uintptr)(unsafe.Pointer(&block))
	off := int(data - uintptr(a.heapStart))
	if off < headerSize || off >= a.seg.Size() {
		return
	}
	b := (*memblock)(unsafe.Add(a.heapStart, off-headerSize))
	markFreed(b, b.blockSize())
	b = a.coalesce(b)
	if b.nextContiguous() == a.wilderness {
		b.size = pack(b.blockSize()+a.wilderness.blockSize(), false)
		a.wilderness = b
	} else {
		a.addBlock(b)
	}
}
