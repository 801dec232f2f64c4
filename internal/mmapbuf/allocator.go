// Package mmapbuf implements the mmap-backed buffer variant: a Buffer
// whose pages are lazily materialised windows into a memory-mapped
// file rather than heap extents. Growth, seek and trim operate on the
// file directly (truncate, head-offset arithmetic); reads, overwrites
// and byte iteration reuse the generic buffer engine once the chain
// covering the requested range has been pulled in.
//
// Grounded on the teacher's zero-copy file I/O
// (internal/runtime/asyncio/zerocopy_unix_file.go), which already
// wraps golang.org/x/sys/unix for mmap-style transfers; this package
// adapts that same dependency to a mapping table keyed by aligned file
// offset instead of a single whole-file mapping.
package mmapbuf

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/logging"
	"github.com/pagebuf/go-pagebuf/internal/page"
	"github.com/pagebuf/go-pagebuf/internal/pberr"
	"github.com/pagebuf/go-pagebuf/internal/region"
)

// MmapUnit is the granularity every mapping is built at: offsets are
// aligned down to a multiple of this before mmap is called.
const MmapUnit = 4096

// OpenAction selects how the backing file is opened.
type OpenAction int

const (
	// OpenAppend opens an existing file (creating it if absent) without
	// truncating it; the buffer's initial logical content is empty, with
	// head_offset effectively a window starting past any prior content.
	OpenAppend OpenAction = iota

	// OpenOverwrite truncates the file to zero length on open.
	OpenOverwrite
)

// CloseAction selects what happens to the backing file once the
// allocator's last reference is released.
type CloseAction int

const (
	// CloseRetain leaves the file on disk.
	CloseRetain CloseAction = iota

	// CloseRemove deletes the file.
	CloseRemove
)

// mapping is one live (or recently retired) system mmap span.
type mapping struct {
	region        *region.Region
	alignedOffset int64
	length        int64
	obsolete      bool
}

// Allocator owns the backing file descriptor and the table of live
// mappings keyed by aligned file offset. It implements
// allocator.Allocator: struct allocations are delegated to an inner
// heap allocator, while region allocations are refused through the
// generic path — mmap regions are built only through the allocator's
// own PageForward/PageBackward machinery, never through
// Alloc(KindRegion, ...).
type Allocator struct {
	inner       allocator.Allocator
	file        *os.File
	path        string
	closeAction CloseAction
	useCount    int32

	mappings map[int64]*mapping
	byAddr   map[uintptr]*mapping
}

func newAllocator(file *os.File, path string, closeAction CloseAction, inner allocator.Allocator) *Allocator {
	if inner == nil {
		inner = allocator.Default
	}

	return &Allocator{
		inner:       inner,
		file:        file,
		path:        path,
		closeAction: closeAction,
		useCount:    1,
		mappings:    make(map[int64]*mapping),
		byAddr:      make(map[uintptr]*mapping),
	}
}

// Alloc implements allocator.Allocator.
func (a *Allocator) Alloc(kind allocator.Kind, size int) ([]byte, error) {
	if kind == allocator.KindStruct {
		return a.inner.Alloc(kind, size)
	}

	return nil, pberr.ErrUnsupportedKind
}

// Free implements allocator.Allocator. A KindRegion call here means a
// mapping's last page just died; the mapping (obsolete or not) is
// unmapped and dropped from both tables.
func (a *Allocator) Free(kind allocator.Kind, buf []byte) {
	if kind == allocator.KindStruct {
		a.inner.Free(kind, buf)
		return
	}

	m, ok := a.byAddr[addrOf(buf)]
	if !ok {
		return
	}

	delete(a.byAddr, addrOf(buf))
	if !m.obsolete {
		delete(a.mappings, m.alignedOffset)
	}

	_ = unix.Munmap(buf)
}

// Put releases the caller's reference to the allocator; once the last
// reference drops, every remaining mapping is unmapped and the file is
// closed (and removed, if closeAction says so).
func (a *Allocator) Put() {
	a.useCount--
	if a.useCount > 0 {
		return
	}

	for _, m := range a.mappings {
		_ = unix.Munmap(m.region.Bytes())
	}

	a.mappings = nil
	a.byAddr = nil

	_ = a.file.Close()
	if a.closeAction == CloseRemove {
		_ = os.Remove(a.path)
	}
}

func addrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&buf[0]))
}

func alignDown(off int64) int64 {
	return off &^ (MmapUnit - 1)
}

// mapRegion returns the region covering alignedOffset, reusing the
// table entry if one exists and is long enough, or building a fresh
// mapping otherwise. A short existing mapping (the file has since
// grown past its end) is retired: marked obsolete, removed from the
// table, and its table-held reference released — any page still
// windowing into it keeps it alive until that page dies.
func (a *Allocator) mapRegion(alignedOffset, fileSize int64) (*region.Region, int64, error) {
	wantLen := fileSize - alignedOffset
	if wantLen > MmapUnit {
		wantLen = MmapUnit
	}

	if existing, ok := a.mappings[alignedOffset]; ok {
		if existing.length >= wantLen {
			return existing.region, existing.length, nil
		}

		existing.obsolete = true
		delete(a.mappings, alignedOffset)
		existing.region.Put()

		logging.Default.Debugf("mmapbuf: retiring short mapping at offset %d (%d < %d bytes)", alignedOffset, existing.length, wantLen)
	}

	raw, err := unix.Mmap(int(a.file.Fd()), alignedOffset, int(wantLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, 0, fmt.Errorf("pagebuf: mmap %s at offset %d: %w", a.path, alignedOffset, err)
	}

	logging.Default.Debugf("mmapbuf: mapped %s offset %d length %d", a.path, alignedOffset, wantLen)

	r := region.NewOwningFromBytes(raw, a)
	m := &mapping{region: r, alignedOffset: alignedOffset, length: wantLen}
	a.mappings[alignedOffset] = m
	a.byAddr[addrOf(raw)] = m

	return r, wantLen, nil
}

// invalidatePast retires every mapping whose span now extends beyond
// fileSize, following a truncate that shrank the file (spec §4.7's
// trim behaviour: "the mapping straddling the new end is removed from
// the table and recreated at its new, shorter length").
func (a *Allocator) invalidatePast(fileSize int64) {
	for off, m := range a.mappings {
		if off+m.length > fileSize {
			delete(a.mappings, off)
			m.obsolete = true
			m.region.Put()
		}
	}
}

// PageForward builds the page covering the file span starting at
// logicalOffset, extending to the end of whichever mapping covers it
// (never straddling two mappings in one page). Returns a nil page and
// the unchanged offset once logicalOffset reaches fileSize.
func (a *Allocator) PageForward(logicalOffset, fileSize int64) (*page.Page, int64, error) {
	if logicalOffset >= fileSize {
		return nil, logicalOffset, nil
	}

	alignedOffset := alignDown(logicalOffset)

	r, mappedLen, err := a.mapRegion(alignedOffset, fileSize)
	if err != nil {
		return nil, logicalOffset, err
	}

	winBase := int(logicalOffset - alignedOffset)
	winLen := int(mappedLen) - winBase

	// The mapping table keeps its own standing reference on r; this
	// page needs an independent one of its own, hence the explicit Get
	// before FromRegion (which no longer takes one itself).
	p := page.FromRegion(r.Get())
	p.Base = winBase
	p.Len = winLen

	return p, logicalOffset + int64(winLen), nil
}

// PageBackward builds the page covering the file span ending at
// logicalOffset (exclusive), extending back to the start of whichever
// mapping covers the byte just before it (never straddling two
// mappings in one page), clamped so the window never reaches below
// minOffset. Returns a nil page and the unchanged offset once
// logicalOffset has retreated to minOffset. Symmetric counterpart to
// PageForward, per spec.md §4.7's page_map_forward/page_map_backward
// pair.
func (a *Allocator) PageBackward(logicalOffset, minOffset, fileSize int64) (*page.Page, int64, error) {
	if logicalOffset <= minOffset {
		return nil, logicalOffset, nil
	}

	alignedOffset := alignDown(logicalOffset - 1)

	r, mappedLen, err := a.mapRegion(alignedOffset, fileSize)
	if err != nil {
		return nil, logicalOffset, err
	}

	start := alignedOffset
	if start < minOffset {
		start = minOffset
	}

	winBase := int(start - alignedOffset)
	winEnd := int(logicalOffset - alignedOffset)
	if int64(winEnd) > mappedLen {
		winEnd = int(mappedLen)
	}

	if winEnd <= winBase {
		return nil, logicalOffset, nil
	}

	p := page.FromRegion(r.Get())
	p.Base = winBase
	p.Len = winEnd - winBase

	return p, start, nil
}
