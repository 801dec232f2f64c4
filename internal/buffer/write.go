package buffer

// WriteData appends data at the end of the buffer. It is equivalent to
// InsertData at the end iterator (spec §4.4) and shares the same
// revision-bump rule, including the first-write-into-an-empty-buffer
// exception exercised by scenario S1.
func (b *Buffer) WriteData(data []byte) int {
	if b.strategy.RejectsWrite {
		return 0
	}

	pages, _, _ := b.paginateOwned(data)

	return b.insertChunks(b.End(), 0, pages)
}

// WriteDataRef is WriteData with borrowed-region pages.
func (b *Buffer) WriteDataRef(data []byte) int {
	if b.strategy.RejectsWrite {
		return 0
	}

	pages := b.paginateBorrowed(data)

	return b.insertChunks(b.End(), 0, pages)
}

// WriteBuffer transfers up to n bytes from src at the end of the
// buffer, per the same four sub-algorithms as InsertBuffer.
func (b *Buffer) WriteBuffer(src *Buffer, n int) int {
	if b.strategy.RejectsWrite {
		return 0
	}

	pages := b.fragmentFromSource(src, clampToSize(n, src.size))

	return b.insertChunks(b.End(), 0, pages)
}
