package buffer

import "github.com/pagebuf/go-pagebuf/internal/page"

func (b *Buffer) chunkSize(total int) int {
	if b.strategy.PageSize <= 0 {
		return total
	}

	return b.strategy.PageSize
}

// Extend appends min(n, ...) new owned bytes at the tail, split into
// pages of at most PageSize. It returns the number of bytes actually
// added; a failed allocation mid-way stops the operation and returns
// the prefix added so far. Extend never bumps the revision: it only
// introduces bytes that did not previously exist (spec §4.4).
func (b *Buffer) Extend(n int) int {
	if b.strategy.RejectsExtend || n <= 0 {
		return 0
	}

	chunk := b.chunkSize(n)
	added := 0

	for added < n {
		sz := n - added
		if sz > chunk {
			sz = chunk
		}

		p, err := page.NewOwned(sz, b.alloc)
		if err != nil {
			break
		}

		spliceBefore(&b.sentinel, p)

		b.size += uint64(sz)
		added += sz
	}

	return added
}

// Reserve extends the buffer so total size is at least size, returning
// the number of bytes added (0 if already large enough).
func (b *Buffer) Reserve(size uint64) int {
	if b.size >= size {
		return 0
	}

	return b.Extend(int(size - b.size))
}

// Rewind prepends min(n, ...) new owned bytes at the head, mirroring
// Extend. It never bumps the revision: the prepended bytes are new,
// not a mutation of bytes already in the buffer.
func (b *Buffer) Rewind(n int) int {
	if b.strategy.RejectsRewind || n <= 0 {
		return 0
	}

	chunk := b.chunkSize(n)
	head := b.sentinel.Next

	var newPages []*page.Page

	added := 0
	for added < n {
		sz := n - added
		if sz > chunk {
			sz = chunk
		}

		p, err := page.NewOwned(sz, b.alloc)
		if err != nil {
			break
		}

		newPages = append(newPages, p)
		added += sz
	}

	for _, p := range newPages {
		spliceBefore(head, p)
	}

	b.size += uint64(added)

	return added
}

// Seek discards up to n bytes from the head, freeing wholly consumed
// pages and shrinking a partially consumed page's window by advancing
// its base and reducing its length. Returns the number of bytes
// actually discarded and bumps the revision iff that number is
// non-zero.
func (b *Buffer) Seek(n uint64) uint64 {
	if b.strategy.RejectsSeek {
		return 0
	}

	if n > b.size {
		n = b.size
	}

	remaining := n

	for remaining > 0 {
		p := b.sentinel.Next
		if p == &b.sentinel {
			break
		}

		if uint64(p.Len) <= remaining {
			remaining -= uint64(p.Len)
			b.size -= uint64(p.Len)
			unlink(p)
			p.Destroy()
		} else {
			p.Base += int(remaining)
			p.Len -= int(remaining)
			b.size -= remaining
			remaining = 0
		}
	}

	if n > 0 {
		b.revision++
	}

	return n
}

// Trim discards up to n bytes from the tail, symmetric to Seek: a
// partially consumed tail page has only its length reduced (its base
// is untouched, since the cut is from the end).
func (b *Buffer) Trim(n uint64) uint64 {
	if b.strategy.RejectsTrim {
		return 0
	}

	if n > b.size {
		n = b.size
	}

	remaining := n

	for remaining > 0 {
		p := b.sentinel.Prev
		if p == &b.sentinel {
			break
		}

		if uint64(p.Len) <= remaining {
			remaining -= uint64(p.Len)
			b.size -= uint64(p.Len)
			unlink(p)
			p.Destroy()
		} else {
			p.Len -= int(remaining)
			b.size -= remaining
			remaining = 0
		}
	}

	if n > 0 {
		b.revision++
	}

	return n
}
