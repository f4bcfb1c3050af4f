// Package region implements C1 of the transport fabric: a contiguous,
// aligned byte span shared between a scheduler island and worker islands,
// plus the bump allocator the fabric builder uses to carve disjoint
// sub-ranges for rings, mailboxes, and slot pools out of it.
//
// A Region is allocated once at fabric build time and never reallocated.
// Everything downstream of New (or NewMmap) addresses the span by byte offset,
// never by pointer, so the same layout works whether the backing bytes
// came from the Go heap or from an mmap'd file shared with another
// process (see region_mmap.go).
package region

import "fmt"

// MinAlignment is the minimum alignment the fabric accepts for a region
// or any sub-allocation within it.
const MinAlignment = 8

// Layout is the platform-independent descriptor for a Region: base
// offset (always 0 for a region itself; non-zero for sub-ranges carved
// from it), length in bytes, and alignment.
type Layout struct {
	BaseOffset uint32
	Length     uint32
	Alignment  uint32
}

// Region is a contiguous, 8-byte-aligned byte span with a bump allocator
// for carving out disjoint sub-ranges. It is exclusively owned by the
// fabric builder until the layout is published; thereafter each
// ring/mailbox/pool owns a disjoint sub-range and the Region itself is
// only consulted for its backing bytes.
type Region struct {
	buf       []byte
	alignment uint32
	next      uint32 // bump allocator cursor
	closer    func() error
}

// New allocates a heap-backed Region of the given size and alignment.
// Alignment must be a power of two, >= MinAlignment.
func New(size int, alignment uint32) (*Region, error) {
	if err := validateCapacity(size, alignment); err != nil {
		return nil, err
	}
	return &Region{
		buf:       make([]byte, size),
		alignment: alignment,
	}, nil
}

func validateCapacity(size int, alignment uint32) error {
	if alignment < MinAlignment || alignment&(alignment-1) != 0 {
		return &ErrInvalidCapacity{Requested: uint32(size), Minimum: MinAlignment}
	}
	if size <= 0 || uint32(size)%alignment != 0 {
		return &ErrInvalidCapacity{Requested: uint32(size), Minimum: alignment}
	}
	return nil
}

// Layout returns the region's own descriptor.
func (r *Region) Layout() Layout {
	return Layout{BaseOffset: 0, Length: uint32(len(r.buf)), Alignment: r.alignment}
}

// Alloc carves out a disjoint sub-range of size bytes, rounded up to the
// region's alignment, and returns its base offset. It is only ever
// called by the fabric builder, single-threaded, before the layout is
// published.
func (r *Region) Alloc(size int) (uint32, error) {
	aligned := padTo(size, int(r.alignment))
	if uint32(aligned) > uint32(len(r.buf))-r.next {
		return 0, &ErrAllocationFailed{Size: uint32(size), Alignment: r.alignment}
	}
	base := r.next
	r.next += uint32(aligned)
	return base, nil
}

// Bytes returns the sub-range [offset, offset+length) of the region's
// backing storage. Callers on either side of a ring/mailbox/pool boundary
// use this to get their disjoint view of shared memory.
func (r *Region) Bytes(offset, length uint32) []byte {
	return r.buf[offset : offset+length]
}

// Len returns the region's total length in bytes.
func (r *Region) Len() int {
	return len(r.buf)
}

// Close releases any OS-level resources backing the region (a no-op for
// the heap-backed variant; munmaps for the mmap-backed variant).
func (r *Region) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

func padTo(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// ErrInvalidCapacity reports a capacity or alignment that cannot back a
// region or sub-allocation — a build-time, fatal-to-construction error.
type ErrInvalidCapacity struct {
	Requested uint32
	Minimum   uint32
}

func (e *ErrInvalidCapacity) Error() string {
	return fmt.Sprintf("region: invalid capacity %d, minimum %d", e.Requested, e.Minimum)
}

// ErrAllocationFailed reports that a sub-allocation could not be carved
// out of the region's remaining space — a build-time, fatal error.
type ErrAllocationFailed struct {
	Size      uint32
	Alignment uint32
}

func (e *ErrAllocationFailed) Error() string {
	return fmt.Sprintf("region: allocation of %d bytes (align %d) failed: insufficient space", e.Size, e.Alignment)
}
