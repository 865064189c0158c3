// Package arena implements the first-fit, reference-counted free-list
// allocator that backs rawpipe's device-local and host-visible memory
// heaps. The allocator never touches real memory: it hands out logical
// offsets and sizes within an address range whose backing GPU memory
// object is created once the high-water mark (vmsize) is known.
package arena

import (
	"fmt"
	"sync"
)

// block is a node in the allocator's singly-linked free/used list,
// ordered by ascending offset.
type block struct {
	offset uint64
	size   uint64
	free   bool
	ref    int // live only when !free; reservation reference count
	next   *block
}

// Reservation is a handle to a live allocation. The caller stores it
// alongside the GPU resource it backs (an image or buffer) and presents
// it back to Free when that resource's last consumer has been scheduled.
type Reservation struct {
	Offset uint64
	Size   uint64

	blk *block
}

// Arena is a first-fit allocator over a logical address range. The zero
// value is a valid empty arena.
type Arena struct {
	mu       sync.Mutex
	head     *block
	peakRSS  uint64 // sum of currently-live reservation sizes, high-water
	liveSize uint64 // sum of currently-live reservation sizes, current
	vmsize   uint64 // high-water offset ever reserved
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Alloc reserves size bytes aligned to alignment, which must be a power
// of two. It picks the lowest-offset free block large enough once the
// block's start is rounded up for alignment, splits off any remainder,
// and returns a Reservation with ref count 1.
//
// Given an identical sequence of Alloc/Free calls, Alloc always returns
// identical offsets: the free list is always walked in ascending-offset
// order and ties are broken by list order, so there is no hidden
// nondeterminism (no randomised bucket, no map iteration).
func (a *Arena) Alloc(size, alignment uint64) (*Reservation, error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("arena: alignment %d is not a power of two", alignment)
	}
	if size == 0 {
		return nil, fmt.Errorf("arena: zero-size allocation")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var prev *block
	for b := a.head; b != nil; b = b.next {
		if !b.free {
			prev = b
			continue
		}
		start := alignUp(b.offset, alignment)
		padding := start - b.offset
		if b.size < padding+size {
			prev = b
			continue
		}

		// Split off a leading padding block, if alignment forced a gap.
		if padding > 0 {
			pad := &block{offset: b.offset, size: padding, free: true, next: b}
			if prev == nil {
				a.head = pad
			} else {
				prev.next = pad
			}
			prev = pad
		}

		used := &block{offset: start, size: size, free: false, ref: 1, next: b.next}
		remaining := b.size - padding - size
		if remaining > 0 {
			tail := &block{offset: start + size, size: remaining, free: true, next: b.next}
			used.next = tail
		}
		if prev == nil {
			a.head = used
		} else {
			prev.next = used
		}

		end := start + size
		if end > a.vmsize {
			a.vmsize = end
		}
		a.liveSize += size
		if a.liveSize > a.peakRSS {
			a.peakRSS = a.liveSize
		}

		return &Reservation{Offset: start, Size: size, blk: used}, nil
	}

	// No free block large enough: grow the arena by appending a new
	// used block past the current high-water mark.
	start := alignUp(a.vmsize, alignment)
	used := &block{offset: start, size: size, free: false, ref: 1}
	if a.head == nil {
		a.head = used
	} else {
		last := a.head
		for last.next != nil {
			last = last.next
		}
		if start > last.offset+last.size {
			gap := &block{offset: last.offset + last.size, size: start - (last.offset + last.size), free: true, next: used}
			last.next = gap
		} else {
			last.next = used
		}
	}
	a.vmsize = start + size
	a.liveSize += size
	if a.liveSize > a.peakRSS {
		a.peakRSS = a.liveSize
	}
	return &Reservation{Offset: start, Size: size, blk: used}, nil
}

// Free decrements r's reference count; when it reaches zero the backing
// block is returned to the free list and coalesced with free neighbours
// on both sides. Calling Free on an already-fully-freed reservation is a
// programmer error and panics, matching the source's assumption that
// the reference-counting pass (§4.5) never over-frees.
func (a *Arena) Free(r *Reservation) {
	if r == nil || r.blk == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.blk.free {
		panic("arena: double free of reservation")
	}
	r.blk.ref--
	if r.blk.ref > 0 {
		return
	}

	a.liveSize -= r.blk.size
	r.blk.free = true
	r.blk.ref = 0
	a.coalesce()
}

// AddRef adds n to r's reference count. Used by the allocation pass to
// raise a write/source connector's arena entry from 1 to the
// connector's RefCount before any Free is called.
func (a *Arena) AddRef(r *Reservation, n int) {
	if r == nil || r.blk == nil || n == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	r.blk.ref += n
}

// coalesce merges adjacent free blocks. Must be called with a.mu held.
func (a *Arena) coalesce() {
	for b := a.head; b != nil && b.next != nil; {
		if b.free && b.next.free && b.offset+b.size == b.next.offset {
			b.size += b.next.size
			b.next = b.next.next
			continue // re-check b against its new next
		}
		b = b.next
	}
}

// Nuke resets the arena to a single free block covering [0, vmsize),
// discarding all live reservations without running their Free logic.
// Statistics (peak_rss, vmsize) are preserved across the reset so that
// re-running the same graph reproduces the same allocation pattern and
// reporting.
func (a *Arena) Nuke() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vmsize == 0 {
		a.head = nil
	} else {
		a.head = &block{offset: 0, size: a.vmsize, free: true}
	}
	a.liveSize = 0
}

// PeakRSS returns the high-water mark of simultaneously-live reservation
// bytes.
func (a *Arena) PeakRSS() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peakRSS
}

// VMSize returns the high-water offset ever reserved; this is the size
// the caller should allocate for the backing GPU memory object.
func (a *Arena) VMSize() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vmsize
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}
