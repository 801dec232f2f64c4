package buffer

import (
	"github.com/pagebuf/go-pagebuf/internal/page"
	"github.com/pagebuf/go-pagebuf/internal/region"
)

// needsCloneInPlace reports whether p's storage may be shared with
// another page/buffer and therefore must be copied before an in-place
// mutation, per spec §4.4's overwrite algorithm: "before mutating a
// page whose is_transfer is set or whose region is borrowed,
// clone-in-place". A region's use-count alone is not used here — the
// mmap backend keeps a standing table reference on every live mapping
// (spec §4.7), so a raw uniqueness check would force a copy on every
// mmap overwrite and defeat the point of mapping the file read-write.
func needsCloneInPlace(p *page.Page) bool {
	return p.IsTransfer || p.Region.Ownership() == region.Borrowed
}

func (b *Buffer) cloneInPlace(p *page.Page) error {
	fresh, err := region.NewOwning(p.Len, b.alloc)
	if err != nil {
		return err
	}

	copy(fresh.Bytes(), p.Bytes())
	p.SetData(fresh)

	return nil
}

// OverwriteData overwrites up to len(data) bytes starting at the head
// of the buffer, cloning any shared page storage in place before
// mutating it. Overwrite never grows the buffer: it stops at the
// buffer's current size. Returns the number of bytes actually written
// and bumps the revision iff that number is non-zero.
func (b *Buffer) OverwriteData(data []byte) int {
	if b.strategy.RejectsOverwrite {
		return 0
	}

	limit := clampToSize(len(data), b.size)

	written := 0
	p := b.sentinel.Next

	for written < limit && p != &b.sentinel {
		n := p.Len
		if written+n > limit {
			n = limit - written
		}

		if needsCloneInPlace(p) {
			if err := b.cloneInPlace(p); err != nil {
				break
			}
		}

		copy(p.Bytes()[:n], data[written:written+n])

		written += n
		p = p.Next
	}

	if written > 0 {
		b.revision++
	}

	return written
}

// OverwriteBuffer overwrites up to n bytes at the head of the buffer
// with bytes read from the head of src, reusing the same clone-in-place
// discipline as OverwriteData.
func (b *Buffer) OverwriteBuffer(src *Buffer, n int) int {
	if b.strategy.RejectsOverwrite {
		return 0
	}

	limit := clampToSize(n, b.size)
	limit = clampToSize(limit, src.size)

	written := 0
	dp := b.sentinel.Next
	sp := src.sentinel.Next
	sOff := 0

	for written < limit && dp != &b.sentinel {
		dLen := dp.Len
		if written+dLen > limit {
			dLen = limit - written
		}

		if needsCloneInPlace(dp) {
			if err := b.cloneInPlace(dp); err != nil {
				break
			}
		}

		copied := 0
		for copied < dLen && sp != &src.sentinel {
			avail := sp.Len - sOff
			if avail <= 0 {
				sp = sp.Next
				sOff = 0

				continue
			}

			take := dLen - copied
			if take > avail {
				take = avail
			}

			copy(dp.Bytes()[copied:copied+take], sp.Bytes()[sOff:sOff+take])

			copied += take
			sOff += take

			if sOff >= sp.Len {
				sp = sp.Next
				sOff = 0
			}
		}

		written += copied
		dp = dp.Next
	}

	if written > 0 {
		b.revision++
	}

	return written
}
