package allocator

import (
	"errors"
	"testing"

	"github.com/pagebuf/go-pagebuf/internal/pberr"
)

func TestTrivialAllocatorBasic(t *testing.T) {
	a := New()

	t.Run("AllocReturnsExactLength", func(t *testing.T) {
		buf, err := a.Alloc(KindRegion, 128)
		if err != nil {
			t.Fatalf("Alloc failed: %v", err)
		}

		if len(buf) != 128 {
			t.Fatalf("len(buf) = %d, want 128", len(buf))
		}
	})

	t.Run("ZeroSizeReturnsEmptySlice", func(t *testing.T) {
		buf, err := a.Alloc(KindStruct, 0)
		if err != nil {
			t.Fatalf("Alloc(0) failed: %v", err)
		}

		if len(buf) != 0 {
			t.Fatalf("len(buf) = %d, want 0", len(buf))
		}
	})

	t.Run("NegativeSizeFails", func(t *testing.T) {
		if _, err := a.Alloc(KindRegion, -1); err == nil {
			t.Fatal("Alloc(-1) succeeded, want error")
		}
	})

	t.Run("FreeNilIsNoop", func(t *testing.T) {
		a.Free(KindRegion, nil)
	})
}

func TestTrivialAllocatorMemoryLimit(t *testing.T) {
	a := New(WithMemoryLimit(256))

	buf, err := a.Alloc(KindRegion, 200)
	if err != nil {
		t.Fatalf("first Alloc failed: %v", err)
	}

	if _, err := a.Alloc(KindRegion, 100); err == nil {
		t.Fatal("Alloc over limit succeeded, want error")
	}

	a.Free(KindRegion, buf)

	if _, err := a.Alloc(KindRegion, 100); err != nil {
		t.Fatalf("Alloc after Free failed: %v", err)
	}
}

func TestTrivialAllocatorStructVsRegionErrorKind(t *testing.T) {
	a := New(WithMemoryLimit(64))

	if _, err := a.Alloc(KindStruct, 128); !errors.Is(err, pberr.ErrOutOfMemory) {
		t.Fatalf("oversized struct Alloc error = %v, want ErrOutOfMemory", err)
	}

	if _, err := a.Alloc(KindRegion, 128); !errors.Is(err, pberr.ErrAllocFailed) {
		t.Fatalf("oversized region Alloc error = %v, want ErrAllocFailed", err)
	}
}

func TestTrivialAllocatorStats(t *testing.T) {
	a := New()

	buf, _ := a.Alloc(KindRegion, 64)
	a.Free(KindRegion, buf)

	stats := a.Stats()
	if stats.AllocCount != 1 || stats.FreeCount != 1 {
		t.Fatalf("Stats = %+v, want AllocCount=1 FreeCount=1", stats)
	}

	if stats.TotalAllocated != 64 || stats.TotalFreed != 64 {
		t.Fatalf("Stats = %+v, want TotalAllocated=64 TotalFreed=64", stats)
	}
}

func TestTrivialAllocatorTrackingDisabled(t *testing.T) {
	a := New(WithTracking(false), WithMemoryLimit(8))

	if _, err := a.Alloc(KindRegion, 1024); err != nil {
		t.Fatalf("Alloc with tracking disabled should ignore the limit, got: %v", err)
	}

	stats := a.Stats()
	if stats.AllocCount != 0 {
		t.Fatalf("Stats.AllocCount = %d, want 0 with tracking disabled", stats.AllocCount)
	}
}
