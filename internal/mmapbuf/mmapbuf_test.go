package mmapbuf

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestBuffer(t *testing.T) (*Buffer, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mmapbuf-test.bin")

	b, err := Create(path, OpenOverwrite, CloseRemove, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Cleanup(b.Destroy)

	return b, path
}

func TestCreateRejectsInvalidActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")

	if _, err := Create(path, OpenAction(99), CloseRetain, nil); err == nil {
		t.Fatal("Create with an invalid OpenAction should fail")
	}

	if _, err := Create(path, OpenOverwrite, CloseAction(99), nil); err == nil {
		t.Fatal("Create with an invalid CloseAction should fail")
	}
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	b, _ := newTestBuffer(t)

	if n := b.WriteData([]byte("hello world")); n != 11 {
		t.Fatalf("WriteData = %d, want 11", n)
	}

	if b.Size() != 11 {
		t.Fatalf("Size() = %d, want 11", b.Size())
	}

	dst := make([]byte, 11)
	if n := b.ReadData(dst); n != 11 {
		t.Fatalf("ReadData = %d, want 11", n)
	}

	if string(dst) != "hello world" {
		t.Fatalf("ReadData contents = %q, want %q", dst, "hello world")
	}
}

func TestInsertIsAlwaysRejected(t *testing.T) {
	b, _ := newTestBuffer(t)
	b.WriteData([]byte("abc"))

	if n := b.InsertData(b.Begin(), 0, []byte("x")); n != 0 {
		t.Fatalf("InsertData = %d, want 0: mmap buffers never accept splicing inserts", n)
	}
}

func TestSeekAndTrimBumpRevisionExtendDoesNot(t *testing.T) {
	b, _ := newTestBuffer(t)

	if n := b.Extend(100); n != 100 {
		t.Fatalf("Extend(100) = %d, want 100", n)
	}

	if b.Revision() != 0 {
		t.Fatalf("Revision() = %d after Extend, want 0", b.Revision())
	}

	if n := b.Seek(10); n != 10 {
		t.Fatalf("Seek(10) = %d, want 10", n)
	}

	if b.Revision() != 1 {
		t.Fatalf("Revision() = %d after Seek, want 1", b.Revision())
	}

	if n := b.Trim(10); n != 10 {
		t.Fatalf("Trim(10) = %d, want 10", n)
	}

	if b.Revision() != 2 {
		t.Fatalf("Revision() = %d after Trim, want 2", b.Revision())
	}

	if b.Size() != 80 {
		t.Fatalf("Size() = %d, want 80", b.Size())
	}
}

// TestTrimSplitsAMapping exercises the mapping-retirement path: a file
// spanning three mapping units is trimmed down to a size that lands in
// the middle of the second mapping, which must be rebuilt shorter the
// next time it's materialised.
func TestTrimSplitsAMapping(t *testing.T) {
	b, path := newTestBuffer(t)

	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}

	if n := b.WriteData(data); n != len(data) {
		t.Fatalf("WriteData = %d, want %d", n, len(data))
	}

	// Materialise the full chain once so three mappings (0, 4096, 8192)
	// exist in the allocator's table before the trim.
	if _, err := b.fileSize(); err != nil {
		t.Fatalf("fileSize failed: %v", err)
	}

	full := make([]byte, 10000)
	b.ReadData(full)

	if len(b.alloc.mappings) != 3 {
		t.Fatalf("mapping count = %d, want 3 before trim", len(b.alloc.mappings))
	}

	if n := b.Trim(2500); n != 2500 {
		t.Fatalf("Trim(2500) = %d, want 2500", n)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	if st.Size() != 7500 {
		t.Fatalf("file size = %d, want 7500", st.Size())
	}

	if b.Size() != 7500 {
		t.Fatalf("Size() = %d, want 7500", b.Size())
	}

	rest := make([]byte, 7500)
	if n := b.ReadData(rest); n != 7500 {
		t.Fatalf("ReadData after trim = %d, want 7500", n)
	}

	for i := range rest {
		if rest[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, rest[i], data[i])
		}
	}

	m, ok := b.alloc.mappings[4096]
	if !ok {
		t.Fatal("expected a rebuilt mapping at offset 4096 after trim")
	}

	if m.length != 3404 {
		t.Fatalf("rebuilt mapping length = %d, want 3404", m.length)
	}
}

func TestClearTruncatesToHeadOffset(t *testing.T) {
	b, _ := newTestBuffer(t)
	b.WriteData([]byte("abcdef"))
	b.Seek(2)

	b.Clear()

	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after Clear", b.Size())
	}

	if n := b.WriteData([]byte("xy")); n != 2 {
		t.Fatalf("WriteData after Clear = %d, want 2", n)
	}

	dst := make([]byte, 2)
	b.ReadData(dst)

	if string(dst) != "xy" {
		t.Fatalf("contents after Clear+WriteData = %q, want %q", dst, "xy")
	}
}

// TestLazyForwardIterationMapsOneUnitAtATime exercises the fix for the
// accessors that used to materialise an entire large file on a single
// page-iterator call: advancing a PageIterator one page at a time
// should grow the mapping table one mapping unit at a time, not all at
// once.
func TestLazyForwardIterationMapsOneUnitAtATime(t *testing.T) {
	b, _ := newTestBuffer(t)

	data := make([]byte, 3*MmapUnit)
	if n := b.WriteData(data); n != len(data) {
		t.Fatalf("WriteData = %d, want %d", n, len(data))
	}

	it := b.Begin()
	if len(b.alloc.mappings) != 1 {
		t.Fatalf("mapping count after Begin() = %d, want 1 (lazy first unit only)", len(b.alloc.mappings))
	}

	it = it.Next()
	if len(b.alloc.mappings) != 2 {
		t.Fatalf("mapping count after one Next() = %d, want 2", len(b.alloc.mappings))
	}

	it = it.Next()
	if len(b.alloc.mappings) != 3 {
		t.Fatalf("mapping count after two Next() = %d, want 3", len(b.alloc.mappings))
	}

	if it = it.Next(); !it.IsEnd() {
		t.Fatal("Next() past the third unit should reach the end iterator")
	}
}

// TestBackwardIterationMapsFromFileEnd exercises page_map_backward: a
// byte iterator retreating from EndByte() on an unmaterialised buffer
// should pull in content starting from the file's tail, not require a
// forward pass first.
func TestBackwardIterationMapsFromFileEnd(t *testing.T) {
	b, _ := newTestBuffer(t)

	data := []byte("0123456789")
	if n := b.WriteData(data); n != len(data) {
		t.Fatalf("WriteData = %d, want %d", n, len(data))
	}

	it := b.EndByte()
	var got []byte

	for i := 0; i < len(data); i++ {
		it = it.Prev()
		got = append([]byte{it.CurrentByte()}, got...)
	}

	if string(got) != string(data) {
		t.Fatalf("backward-scanned bytes = %q, want %q", got, data)
	}

	if len(b.alloc.mappings) != 1 {
		t.Fatalf("mapping count = %d, want 1 (single unit covers this small file)", len(b.alloc.mappings))
	}
}

func TestOverwriteDoesNotCloneMappedPages(t *testing.T) {
	b, _ := newTestBuffer(t)
	b.WriteData([]byte("0123456789"))

	if n := b.OverwriteData([]byte("AB")); n != 2 {
		t.Fatalf("OverwriteData = %d, want 2", n)
	}

	dst := make([]byte, 10)
	b.ReadData(dst)

	if string(dst) != "AB23456789" {
		t.Fatalf("contents after OverwriteData = %q, want %q", dst, "AB23456789")
	}
}
