package buffer

import (
	"testing"

	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/pberr"
	"github.com/pagebuf/go-pagebuf/internal/region"
)

func collectBytes(b *Buffer) []byte {
	out := make([]byte, b.Size())
	b.ReadData(out)

	return out
}

func TestPageSplit_S1(t *testing.T) {
	b := New(DefaultStrategy(), allocator.Default)

	seed := "abcdejklmnopqrstuvwxyz"
	if n := b.WriteData([]byte(seed)); n != len(seed) {
		t.Fatalf("WriteData = %d, want %d", n, len(seed))
	}

	it := b.Begin()
	if n := b.InsertData(it, 5, []byte("fghi")); n != 4 {
		t.Fatalf("InsertData = %d, want 4", n)
	}

	if b.Size() != 26 {
		t.Fatalf("Size() = %d, want 26", b.Size())
	}

	if b.Revision() != 2 {
		t.Fatalf("Revision() = %d, want 2 (one write into empty, one insert)", b.Revision())
	}

	got := string(collectBytes(b))
	want := "abcdefghijklmnopqrstuvwxyz"

	if got != want {
		t.Fatalf("buffer contents = %q, want %q", got, want)
	}
}

func TestOverwriteAcrossCloneInPlace_S2(t *testing.T) {
	strategy := DefaultStrategy()
	strategy.CloneOnWrite = false

	b := New(strategy, allocator.Default)

	backing := []byte("abcdejklmnopqrstuvwxyz")
	backingCopy := append([]byte(nil), backing...)

	if n := b.WriteDataRef(backing); n != len(backing) {
		t.Fatalf("WriteDataRef = %d, want %d", n, len(backing))
	}

	it := b.Begin()
	b.InsertData(it, 5, []byte("fghi"))

	if n := b.Seek(4); n != 4 {
		t.Fatalf("Seek(4) = %d, want 4", n)
	}

	revAfterSeek := b.Revision()

	if n := b.OverwriteData([]byte("WXYZ")); n != 4 {
		t.Fatalf("OverwriteData = %d, want 4", n)
	}

	if b.Revision() != revAfterSeek+1 {
		t.Fatalf("Revision() = %d, want %d (one bump from overwrite)", b.Revision(), revAfterSeek+1)
	}

	first := collectBytes(b)[0]
	if first != 'W' {
		t.Fatalf("first byte = %q, want 'W'", first)
	}

	for i, want := range backingCopy {
		if backing[i] != want {
			t.Fatalf("caller's backing array mutated at index %d: got %q, want %q", i, backing[i], want)
		}
	}
}

func TestZeroCopyWriteBuffer_S3(t *testing.T) {
	b1 := New(DefaultStrategy(), allocator.Default)
	b2 := New(DefaultStrategy(), allocator.Default)

	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i)
	}

	if n := b1.WriteData(data); n != len(data) {
		t.Fatalf("WriteData(b1) = %d, want %d", n, len(data))
	}

	regionsOf := func(b *Buffer) map[*region.Region]int32 {
		out := map[*region.Region]int32{}

		p := b.sentinel.Next
		for p != &b.sentinel {
			out[p.Region] = p.Region.UseCount()
			p = p.Next
		}

		return out
	}

	before := regionsOf(b1)

	if n := b2.WriteBuffer(b1, 8192); n != 8192 {
		t.Fatalf("WriteBuffer = %d, want 8192", n)
	}

	after := regionsOf(b1)

	if len(before) != len(after) {
		t.Fatalf("region set size changed: before=%d after=%d", len(before), len(after))
	}

	for r, beforeCount := range before {
		afterCount, ok := after[r]
		if !ok {
			t.Fatalf("region %p present before WriteBuffer missing after", r)
		}

		if afterCount != beforeCount+1 {
			t.Fatalf("region %p use_count = %d, want %d (doubled contribution from b2's page)", r, afterCount, beforeCount+1)
		}
	}

	if b1.Size() != 8192 {
		t.Fatalf("b1.Size() = %d, want 8192", b1.Size())
	}

	if b2.Size() != 8192 {
		t.Fatalf("b2.Size() = %d, want 8192", b2.Size())
	}
}

// failAfterN is a region allocator that fails every nth region
// allocation it's asked to perform (the nth, 2nth, ...). It stands in for
// spec.md S6's "an allocator that fails every third struct
// allocation": in this port, region (not struct) allocations are the
// only allocator-routed failure surface a bulk operation can ever
// observe, since Page/Region/Buffer headers are plain GC-managed Go
// values rather than allocator-obtained memory (see DESIGN.md's
// GC-vs-arena note).
type failAfterN struct {
	inner allocator.Allocator
	every int
	calls int
}

func (a *failAfterN) Alloc(kind allocator.Kind, size int) ([]byte, error) {
	if kind == allocator.KindRegion {
		a.calls++
		if a.calls%a.every == 0 {
			return nil, pberr.ErrAllocFailed
		}
	}

	return a.inner.Alloc(kind, size)
}

func (a *failAfterN) Free(kind allocator.Kind, buf []byte) {
	a.inner.Free(kind, buf)
}

func TestPartialFailureContainment_S6(t *testing.T) {
	a := &failAfterN{inner: allocator.New(), every: 3}

	b := New(DefaultStrategy(), a)

	data := make([]byte, 1_000_000)
	for i := range data {
		data[i] = byte(i)
	}

	n := b.WriteData(data)

	if n >= len(data) {
		t.Fatalf("WriteData = %d, want < %d under a failing allocator", n, len(data))
	}

	if uint64(n) != b.Size() {
		t.Fatalf("Size() = %d, want %d", b.Size(), n)
	}

	got := collectBytes(b)
	for i := range got {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %q, want %q", i, got[i], data[i])
		}
	}

	if b.Revision() != 1 {
		t.Fatalf("Revision() = %d, want 1 (initial write into an empty buffer)", b.Revision())
	}
}

func TestSeekBoundary(t *testing.T) {
	b := New(DefaultStrategy(), allocator.Default)
	b.WriteData([]byte("hello"))

	if n := b.Seek(0); n != 0 {
		t.Fatalf("Seek(0) = %d, want 0", n)
	}

	if b.Revision() != 1 {
		t.Fatalf("Revision() = %d, want 1 (Seek(0) must not bump)", b.Revision())
	}

	if n := b.Seek(b.Size()); n != 5 {
		t.Fatalf("Seek(size) = %d, want 5", n)
	}

	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after Seek(size)", b.Size())
	}

	if b.Revision() != 2 {
		t.Fatalf("Revision() = %d, want 2", b.Revision())
	}
}

func TestByteIteratorAtEmptyBufferEqualsEnd(t *testing.T) {
	b := New(DefaultStrategy(), allocator.Default)

	begin := b.BeginByte()
	end := b.EndByte()

	if !begin.Eq(end) {
		t.Fatal("BeginByte() should equal EndByte() on an empty buffer")
	}

	if begin.CurrentByte() != 0 {
		t.Fatalf("CurrentByte() = %d, want 0", begin.CurrentByte())
	}
}

func TestRejectsInsertAllowsEndNotMiddle(t *testing.T) {
	strategy := DefaultStrategy()
	strategy.RejectsInsert = true

	b := New(strategy, allocator.Default)
	b.WriteData([]byte("abc"))

	mid := b.Begin()
	if n := b.InsertData(mid, 1, []byte("X")); n != 0 {
		t.Fatalf("InsertData into non-end iterator = %d, want 0 under RejectsInsert", n)
	}

	if n := b.InsertData(b.End(), 0, []byte("X")); n != 1 {
		t.Fatalf("InsertData into end iterator = %d, want 1 even under RejectsInsert", n)
	}
}

func TestClearResetsToSentinel(t *testing.T) {
	b := New(DefaultStrategy(), allocator.Default)
	b.WriteData([]byte("hello"))

	b.Clear()

	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after Clear", b.Size())
	}

	if !b.Begin().IsEnd() {
		t.Fatal("Begin() should equal End() after Clear")
	}
}

func TestExtendTrimRoundTrip(t *testing.T) {
	b := New(DefaultStrategy(), allocator.Default)

	added := b.Extend(100)
	if added != 100 {
		t.Fatalf("Extend(100) = %d, want 100", added)
	}

	revAfterExtend := b.Revision()
	if revAfterExtend != 0 {
		t.Fatalf("Revision() = %d after Extend, want 0 (extend never bumps)", revAfterExtend)
	}

	trimmed := b.Trim(100)
	if trimmed != 100 {
		t.Fatalf("Trim(100) = %d, want 100", trimmed)
	}

	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", b.Size())
	}

	if b.Revision() != revAfterExtend+1 {
		t.Fatalf("Revision() = %d, want %d (only the trim bumps)", b.Revision(), revAfterExtend+1)
	}
}

func TestInsertSplitIncrementsRegionUseCount(t *testing.T) {
	strategy := DefaultStrategy()
	strategy.PageSize = 0 // force everything into a single page

	b := New(strategy, allocator.Default)
	b.WriteData([]byte("0123456789"))

	p := b.sentinel.Next
	before := p.Region.UseCount()

	it := b.Begin()
	b.InsertData(it, 4, []byte("X"))

	after := p.Region.UseCount()
	if after != before+1 {
		t.Fatalf("region use_count = %d, want %d (split adds one reference)", after, before+1)
	}
}
