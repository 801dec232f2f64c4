// Package page implements the window-into-region list node that a
// Buffer composes its ring from. A Page never mutates its region's
// extent metadata, only its own visible window into it.
package page

import (
	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/region"
)

// Page is a doubly-linked list node windowing into a Region. Base/Len
// describe the visible span relative to the region's own extent; the
// invariant region.base <= base <= base+len <= region.base+region.len
// (spec §3 Page) is enforced at construction and by every mutating
// helper below.
type Page struct {
	Region *region.Region
	Prev   *Page
	Next   *Page

	Base int
	Len  int

	// IsTransfer marks pages whose window was carved out of another
	// page/region by a zero-copy split or transfer; overwrite clones
	// such a page's storage before mutating it in place (see
	// buffer/overwrite.go), the same as it does for a Borrowed region.
	IsTransfer bool
}

// FromRegion adopts the whole visible window of r, transferring the
// caller's own reference to the new page rather than taking an
// additional one — a freshly constructed Region already carries
// use_count 1 for exactly this purpose (NewOwned/NewBorrowed rely on
// that to produce a sole-owner page, not a doubly-referenced one).
// Callers that want the new page to hold an additional, independent
// reference to an already-shared region (the mmap allocator's mapping
// table does, in internal/mmapbuf) must call r.Get() themselves first.
func FromRegion(r *region.Region) *Page {
	return &Page{Region: r, Base: 0, Len: r.Len()}
}

// TransferFrom forms a new page whose window equals
// (src.Base+srcOff, length) but whose region equals src.Region, taking
// one Get on that region. The resulting page's IsTransfer flag is set.
func TransferFrom(src *Page, length, srcOff int) *Page {
	src.Region.Get()

	return &Page{
		Region:     src.Region,
		Base:       src.Base + srcOff,
		Len:        length,
		IsTransfer: true,
	}
}

// Bytes returns the page's visible window as a slice into its region's
// backing extent.
func (p *Page) Bytes() []byte {
	return p.Region.Bytes()[p.Base : p.Base+p.Len]
}

// SetData replaces p's region with r, transferring the caller's own
// reference the same way FromRegion does (no implicit Get — callers
// handing over an already-shared region must Get() it themselves
// first), and releases p's previous region with a Put. Resets the
// visible window to the full extent of r and clears IsTransfer — used
// by overwrite's clone-in-place path.
func (p *Page) SetData(r *region.Region) {
	old := p.Region
	p.Region = r
	p.Base = 0
	p.Len = r.Len()
	p.IsTransfer = false
	old.Put()
}

// Destroy releases the page's single region reference. The caller is
// responsible for unlinking p from any ring before calling Destroy.
func (p *Page) Destroy() {
	if p.Region != nil {
		p.Region.Put()
		p.Region = nil
	}
}

// Split divides p in place at offset off (0 < off < p.Len) into two
// windows over the same region: a new page covering [0, off) spliced
// immediately before p, and p itself shrunk to [off, len). This is the
// splitting discipline from spec §4.4: the region's use-count rises by
// one because TransferFrom takes a fresh Get.
func Split(p *Page, off int) *Page {
	head := TransferFrom(p, off, 0)
	p.Base += off
	p.Len -= off

	return head
}

// NewOwned allocates a fresh owned region of exactly size bytes via
// alloc and wraps it in a page adopting the whole window. Used by
// extend/rewind/insert_data to paginate caller-supplied bytes.
func NewOwned(size int, alloc allocator.Allocator) (*Page, error) {
	r, err := region.NewOwning(size, alloc)
	if err != nil {
		return nil, err
	}

	return FromRegion(r), nil
}

// NewBorrowed wraps buf as a borrowed region and adopts the whole
// window. Used by insert_data_ref.
func NewBorrowed(buf []byte, alloc allocator.Allocator) *Page {
	return FromRegion(region.NewBorrowing(buf, alloc))
}
