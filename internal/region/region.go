// Package region implements the reference-counted descriptor of a
// contiguous memory extent that every Page borrows a window into. A
// Region is either owning (the extent is freed with the region) or
// borrowing (the extent outlives the region by contract of the caller
// that wrapped it).
package region

import (
	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/pberr"
)

// Ownership distinguishes whether a Region's extent is freed with the
// region (Owned) or merely referenced for the caller-guaranteed
// lifetime of the extent (Borrowed).
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
)

// Region is a reference-counted, immutable-shape descriptor of a byte
// extent. base, len, ownership, and the owning allocator never change
// after construction; only useCount varies. There is no internal
// locking — regions are single-actor per spec §5, and use_count
// increments/decrements are plain integer arithmetic, not atomics.
type Region struct {
	bytes     []byte
	ownership Ownership
	alloc     allocator.Allocator
	useCount  int32
}

// NewOwning allocates a fresh size-byte extent via alloc and wraps it in
// a Region with use_count = 1. A failed extent allocation returns a nil
// Region and a non-nil error; nothing is left half-constructed.
func NewOwning(size int, alloc allocator.Allocator) (*Region, error) {
	if alloc == nil {
		alloc = allocator.Default
	}

	buf, err := alloc.Alloc(allocator.KindRegion, size)
	if err != nil {
		return nil, err
	}

	return &Region{
		bytes:     buf,
		ownership: Owned,
		alloc:     alloc,
		useCount:  1,
	}, nil
}

// NewOwningFromBytes wraps an already-allocated owned extent with
// use_count 1, without routing through alloc.Alloc. It exists for
// backends whose regions are produced by a side channel rather than
// the generic Alloc(KindRegion, ...) path — the mmap allocator builds
// its regions from unix.Mmap directly (spec §4.7) but still must
// release them through alloc.Free(KindRegion, ...) once the last
// reference drops, which is exactly what Put already does.
func NewOwningFromBytes(buf []byte, alloc allocator.Allocator) *Region {
	if alloc == nil {
		alloc = allocator.Default
	}

	return &Region{
		bytes:     buf,
		ownership: Owned,
		alloc:     alloc,
		useCount:  1,
	}
}

// NewBorrowing wraps an externally provided extent without taking
// ownership of it; the caller guarantees buf outlives the Region.
func NewBorrowing(buf []byte, alloc allocator.Allocator) *Region {
	if alloc == nil {
		alloc = allocator.Default
	}

	return &Region{
		bytes:     buf,
		ownership: Borrowed,
		alloc:     alloc,
		useCount:  1,
	}
}

// Bytes returns the full backing extent. Callers windowing into a
// Region (Page) must keep their view within len(Bytes()).
func (r *Region) Bytes() []byte { return r.bytes }

// Len returns the extent length in bytes.
func (r *Region) Len() int { return len(r.bytes) }

// Ownership reports whether this region owns its extent.
func (r *Region) Ownership() Ownership { return r.ownership }

// UseCount reports the current reference count. Exposed for invariant
// testing (spec §8, property 4); not part of the day-to-day page API.
func (r *Region) UseCount() int32 { return r.useCount }

// Unique reports whether exactly one reference to this region exists.
// Overwrite does not consult it: its clone-in-place decision looks only
// at the page's IsTransfer flag and the region's Ownership.
func (r *Region) Unique() bool { return r.useCount == 1 }

// Get increments the reference count and returns r, mirroring the
// "acquire" step of every new Page that windows into this region.
func (r *Region) Get() *Region {
	r.useCount++
	return r
}

// Put decrements the reference count. At zero, an owned extent is
// returned to the allocator and the Region struct itself becomes
// unusable. Put can never fail (spec §4.2).
func (r *Region) Put() {
	r.useCount--
	if r.useCount > 0 {
		return
	}

	if r.ownership == Owned {
		r.alloc.Free(allocator.KindRegion, r.bytes)
	}

	r.bytes = nil
}

// EnsureCapacity is a convenience guard for callers that index into
// Bytes() directly: it returns an error (rather than leaving a
// slice-bounds panic to happen) when a window falls outside the extent.
// No code in this module calls it.
func (r *Region) EnsureCapacity(off, length int) error {
	if off < 0 || length < 0 || off+length > len(r.bytes) {
		return pberr.ErrAllocFailed
	}

	return nil
}
