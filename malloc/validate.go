package malloc

import "unsafe"

// ValidateHeap reports whether the heap's structural invariants hold:
// every indexed occupant is a free block in its class bucket, the
// largest-bucket hint names the highest non-empty bucket, the contiguous
// chain's back-sizes are consistent, block sizes are 8-multiples of at
// least the minimum, no two adjacent blocks are both free, free-flag
// state agrees with index membership, and the wilderness is the sole
// unindexed free block at the tail.
func (a *Allocator) ValidateHeap() bool {
	for i := range a.buckets {
		for b := a.buckets[i]; b != nil; b = b.next {
			if b.allocated() || b == a.wilderness || bucketIndex(b.blockSize()) != i {
				return false
			}
		}
	}
	for i := a.largestIndex + 1; i < numBuckets; i++ {
		if a.buckets[i] != nil {
			return false
		}
	}
	if a.largestIndex >= 0 && a.buckets[a.largestIndex] == nil {
		return false
	}

	wildOff := int(uintptr(unsafe.Pointer(a.wilderness)) - uintptr(a.heapStart))
	off := 0
	prevSize := uint32(0)
	prevFree := false
	for off < wildOff {
		b := (*memblock)(unsafe.Add(a.heapStart, off))
		sz := b.blockSize()
		if sz < minBlockSize || sz%alignment != 0 {
			return false
		}
		if off > 0 && b.prevSize() != prevSize {
			return false
		}
		free := !b.allocated()
		if free && prevFree {
			return false
		}
		if free != a.indexed(b) {
			return false
		}
		prevFree, prevSize = free, sz
		off += int(sz)
	}
	if off != wildOff {
		return false
	}
	w := a.wilderness
	if w.allocated() {
		return false
	}
	if wildOff > 0 && w.prevSize() != prevSize {
		return false
	}
	return wildOff+int(w.blockSize()) == a.seg.Size()
}

// indexed reports whether b sits in its size-class bucket.
func (a *Allocator) indexed(b *memblock) bool {
	idx := bucketIndex(b.blockSize())
	for cur := a.buckets[idx]; cur != nil; cur = cur.next {
		if cur == b {
			return true
		}
	}
	return false
}

// Available returns the total free bytes held by the heap, header
// inclusive: every indexed free block plus the wilderness.
func (a *Allocator) Available() int {
	total := int(a.wilderness.blockSize())
	for i := 0; i <= a.largestIndex; i++ {
		for b := a.buckets[i]; b != nil; b = b.next {
			total += int(b.blockSize())
		}
	}
	return total
}
