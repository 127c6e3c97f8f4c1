package malloc

import "unsafe"

const (
	// alignment is the payload alignment and block size granularity.
	alignment = 8

	// headerSize is the per-block header prepended to every payload.
	headerSize = 8

	// minPayload is the floor applied to client request sizes so a block
	// can always hold the two free-list links once it is freed.
	minPayload = 16

	// minBlockSize is the smallest block the heap can hold: the header
	// plus the payload floor.
	minBlockSize = headerSize + minPayload

	// maxRequestSize bounds client requests so the header-inclusive
	// block size always fits the 32-bit header field.
	maxRequestSize = 1<<31 - headerSize
)

// memblock is the on-heap view of a block. Only the two header words are
// always meaningful; next and prev are live while the block sits on a
// free list and are client bytes otherwise.
type memblock struct {
	prevsz uint32 // size of the preceding contiguous block, flag bits included
	size   uint32 // size of this block, low bit is the allocated flag
	next   *memblock
	prev   *memblock
}

// pack combines a block size with its allocated flag.
func pack(size uint32, allocated bool) uint32 {
	if allocated {
		return size | 1
	}
	return size
}

func (b *memblock) blockSize() uint32 { return b.size &^ 7 }

func (b *memblock) prevSize() uint32 { return b.prevsz &^ 7 }

func (b *memblock) allocated() bool { return b.size&1 != 0 }

// nextContiguous returns the block immediately after b in the heap. For
// the last carved block this is the wilderness itself.
func (b *memblock) nextContiguous() *memblock {
	return (*memblock)(unsafe.Add(unsafe.Pointer(b), uintptr(b.blockSize())))
}

// payloadSlice returns b's payload as a slice of length n capped at the
// block's usable bytes.
func (b *memblock) payloadSlice(n int) []byte {
	usable := int(b.blockSize()) - headerSize
	return unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(b), headerSize)), usable)[:n]
}

// markAllocated stamps b with an allocated header of sz bytes and keeps
// the successor's back-size in sync.
func markAllocated(b *memblock, sz uint32) {
	b.size = pack(sz, true)
	b.nextContiguous().prevsz = b.size
}

// markFreed stamps b free at sz bytes and clears its list links.
func markFreed(b *memblock, sz uint32) {
	b.size = pack(sz, false)
	b.nextContiguous().prevsz = b.size
	b.next = nil
	b.prev = nil
}

// roundup rounds n up to the next multiple of mult, a power of two.
func roundup(n, mult int) int {
	return (n + mult - 1) &^ (mult - 1)
}

// adjustSize converts a client request into a header-inclusive block
// size: floored at minPayload, rounded up to the alignment, plus the
// header.
func adjustSize(size int) uint32 {
	if size < minPayload {
		size = minPayload
	}
	return uint32(roundup(size, alignment) + headerSize)
}
