package buffer

import "github.com/pagebuf/go-pagebuf/internal/page"

// insertChunks splices pages (already constructed, in order) at
// it+off, handling the page split when off > 0 and the single
// revision-bump rule shared by every insert_* entry point: bump unless
// the iterator is End and the buffer was already non-empty (spec §4.4,
// including the documented first-insert-into-empty-buffer exception).
func (b *Buffer) insertChunks(it PageIterator, off int, pages []*page.Page) int {
	if len(pages) == 0 {
		return 0
	}

	isEnd := it.IsEnd()
	wasEmpty := b.size == 0
	target := it.p

	total := 0

	for i, p := range pages {
		localOff := 0
		if i == 0 {
			localOff = off
		}

		if localOff > 0 && !isEnd {
			head := page.Split(target, localOff)
			spliceBefore(target, head)
		}

		spliceBefore(target, p)

		b.size += uint64(p.Len)
		total += p.Len
	}

	if total > 0 && !(isEnd && !wasEmpty) {
		b.revision++
	}

	return total
}

// InsertPage splices an already-constructed page at it+off. If off is
// 0 the page is spliced directly before it's page; if off > 0 the
// iterator's page is split into [0,off) and [off,len) windows over the
// same region and the new page spliced between them.
func (b *Buffer) InsertPage(it PageIterator, off int, p *page.Page) int {
	if b.strategy.RejectsInsert && !it.IsEnd() {
		return 0
	}

	return b.insertChunks(it, off, []*page.Page{p})
}

// InsertData paginates data into owned pages of at most PageSize bytes,
// copies it in, and splices them at it+off.
func (b *Buffer) InsertData(it PageIterator, off int, data []byte) int {
	if b.strategy.RejectsInsert && !it.IsEnd() {
		return 0
	}

	pages, _, _ := b.paginateOwned(data)

	return b.insertChunks(it, off, pages)
}

// InsertDataRef is InsertData, except the source bytes are wrapped as
// borrowed regions rather than copied: the caller guarantees data
// outlives every page referencing it.
func (b *Buffer) InsertDataRef(it PageIterator, off int, data []byte) int {
	if b.strategy.RejectsInsert && !it.IsEnd() {
		return 0
	}

	pages := b.paginateBorrowed(data)

	return b.insertChunks(it, off, pages)
}

// InsertBuffer transfers up to n bytes from src, choosing one of four
// sub-algorithms by this buffer's (CloneOnWrite, FragmentAsTarget)
// strategy flags (spec §4.4 table).
func (b *Buffer) InsertBuffer(it PageIterator, off int, src *Buffer, n int) int {
	if b.strategy.RejectsInsert && !it.IsEnd() {
		return 0
	}

	pages := b.fragmentFromSource(src, clampToSize(n, src.size))

	return b.insertChunks(it, off, pages)
}

func clampToSize(n int, limit uint64) int {
	if n < 0 {
		return 0
	}

	if uint64(n) > limit {
		return int(limit)
	}

	return n
}

func (b *Buffer) paginateOwned(data []byte) ([]*page.Page, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	chunk := b.chunkSize(len(data))

	var pages []*page.Page

	total := 0
	for total < len(data) {
		sz := len(data) - total
		if sz > chunk {
			sz = chunk
		}

		p, err := page.NewOwned(sz, b.alloc)
		if err != nil {
			return pages, total, err
		}

		copy(p.Bytes(), data[total:total+sz])
		pages = append(pages, p)
		total += sz
	}

	return pages, total, nil
}

func (b *Buffer) paginateBorrowed(data []byte) []*page.Page {
	if len(data) == 0 {
		return nil
	}

	chunk := b.chunkSize(len(data))

	var pages []*page.Page

	total := 0
	for total < len(data) {
		sz := len(data) - total
		if sz > chunk {
			sz = chunk
		}

		pages = append(pages, page.NewBorrowed(data[total:total+sz], b.alloc))
		total += sz
	}

	return pages
}

// fragmentFromSource walks src's ring from the head, producing up to n
// bytes' worth of pages according to this buffer's CloneOnWrite and
// FragmentAsTarget flags: zero-copy transfer pages or owned copies,
// each capped at PageSize only when FragmentAsTarget is set (spec §4.4
// insert_buffer table).
func (b *Buffer) fragmentFromSource(src *Buffer, n int) []*page.Page {
	if n <= 0 {
		return nil
	}

	var out []*page.Page

	targetCap := b.strategy.PageSize
	remaining := n
	p := src.sentinel.Next
	srcOff := 0

	for remaining > 0 && p != &src.sentinel {
		avail := p.Len - srcOff
		if avail <= 0 {
			p = p.Next
			srcOff = 0

			continue
		}

		take := avail
		if take > remaining {
			take = remaining
		}

		if b.strategy.FragmentAsTarget && targetCap > 0 && take > targetCap {
			take = targetCap
		}

		if b.strategy.CloneOnWrite {
			np, err := page.NewOwned(take, b.alloc)
			if err != nil {
				break
			}

			copy(np.Bytes(), p.Bytes()[srcOff:srcOff+take])
			out = append(out, np)
		} else {
			out = append(out, page.TransferFrom(p, take, srcOff))
		}

		srcOff += take
		remaining -= take

		if srcOff >= p.Len {
			p = p.Next
			srcOff = 0
		}
	}

	return out
}
