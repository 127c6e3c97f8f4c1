package malloc

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

// reallocBuffer over-allocates relocating reallocs to amortize repeated
// growth of the same block.
const reallocBuffer = 1.2

// Realloc resizes the block backing data, preserving its contents. The
// cheapest applicable strategy wins: reuse the block when it is already
// large enough, absorb free neighbors in place, and only then fall back
// to allocate-copy-free with a growth buffer.
//
// A nil block is equivalent to Malloc(size). A non-positive size returns
// nil without freeing the block. When the fallback allocation fails, nil
// is returned and the original block stays intact.
func (a *Allocator) Realloc(block []byte, size int) []byte {
	if size <= 0 || size > maxRequestSize {
		return nil
	}
	if cap(block) == 0 {
		return a.Malloc(size)
	}
	adjusted := adjustSize(size)
	data := *(*uintptr)(unsafe.Pointer(&block))
	off := int(data - uintptr(a.heapStart))
	b := (*memblock)(unsafe.Add(a.heapStart, off-headerSize))
	oldSize := b.blockSize()

	if adjusted <= oldSize {
		return b.payloadSlice(size)
	}

	var coalescible uint32
	if n := b.nextContiguous(); n != a.wilderness && !n.allocated() {
		coalescible = n.blockSize()
	}
	prev := a.prevContiguous(b)
	prevFree := prev != nil && !prev.allocated()
	if prevFree {
		coalescible += prev.blockSize()
	}
	if adjusted <= oldSize+coalescible {
		return a.mergeRealloc(b, prevFree, size)
	}

	grown := a.Malloc(int(float64(size) * reallocBuffer))
	if grown == nil {
		return nil
	}
	copy(grown, b.payloadSlice(int(oldSize)-headerSize))
	a.Free(block)
	return grown[:size]
}

// mergeRealloc grows b in place by absorbing its free neighbors and
// claiming the merged block whole. When the predecessor participates the
// payload moves backward, so the bytes are staged through a scratch
// buffer across the merge.
func (a *Allocator) mergeRealloc(b *memblock, prevFree bool, size int) []byte {
	payloadLen := int(b.blockSize()) - headerSize
	var scratch []byte
	if prevFree {
		scratch = mcache.Malloc(payloadLen)
		copy(scratch, b.payloadSlice(payloadLen))
	}
	b = a.coalesce(b)
	markAllocated(b, b.blockSize())
	out := b.payloadSlice(size)
	if prevFree {
		copy(out, scratch[:payloadLen])
		mcache.Free(scratch)
	}
	return out
}
