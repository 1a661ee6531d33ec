package fsops

import (
	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/layout"
)

// Read implements spec.md §4.6's read: zero the caller's buffer, then copy
// every byte in [offset, offset+len(buf)) that falls below the inode's
// size, in file order. It never errors; a request entirely past
// inode.Size returns 0.
func Read(l *layout.Layout, in layout.InodeView, buf []byte, offset uint64) int {
	for i := range buf {
		buf[i] = 0
	}
	size := in.Size()
	if offset >= size {
		return 0
	}
	want := uint64(len(buf))
	if offset+want > size {
		want = size - offset
	}

	var placed uint64
	var curOffset uint64
	blockiter.ForEach(l, in, func(block uint32) bool {
		if placed >= want {
			return false
		}
		blockEnd := curOffset + layout.BlockSize
		if blockEnd <= offset {
			curOffset += layout.BlockSize
			return true
		}
		localStart := uint64(0)
		if offset > curOffset {
			localStart = offset - curOffset
		}
		n := layout.BlockSize - localStart
		if remaining := want - placed; n > remaining {
			n = remaining
		}
		data := l.DataBlock(block)
		copy(buf[placed:placed+n], data[localStart:localStart+n])
		placed += n
		curOffset += layout.BlockSize
		return true
	})
	return int(placed)
}

// Write implements spec.md §4.6's write: hole-fill if offset is past the
// current size, grow to fit, then copy size bytes in.
func (c *Core) Write(in layout.InodeView, buf []byte, offset uint64) (int, error) {
	sec, nsec := c.now()
	in.SetMtime(sec, nsec)

	if offset > in.Size() {
		gap := offset - in.Size()
		if err := c.Bitmap.GrowInode(in, gap); err != nil {
			return 0, mapAllocErr(err)
		}
		zeroRange(c.Layout, in, in.Size(), gap)
		in.SetSize(in.Size() + gap)
	}

	size := uint64(len(buf))
	if err := c.Bitmap.GrowInode(in, size); err != nil {
		return 0, mapAllocErr(err)
	}
	in.SetSize(in.Size() + size)

	writeRange(c.Layout, in, offset, buf)
	return len(buf), nil
}

// Truncate implements spec.md §4.6's truncate.
func (c *Core) Truncate(in layout.InodeView, newSize uint64) error {
	sec, nsec := c.now()
	in.SetMtime(sec, nsec)

	size := in.Size()
	switch {
	case newSize > size:
		if err := c.Bitmap.GrowInode(in, newSize-size); err != nil {
			return mapAllocErr(err)
		}
		zeroRange(c.Layout, in, size, newSize-size)
		in.SetSize(newSize)
	case newSize < size:
		c.Bitmap.ShrinkInode(in, newSize)
		in.SetSize(newSize)
	}
	return nil
}

// zeroRange writes n zero bytes starting at logical file offset start,
// assuming the range is already allocated (the caller grew the inode
// first).
func zeroRange(l *layout.Layout, in layout.InodeView, start, n uint64) {
	zero := make([]byte, layout.BlockSize)
	remaining := n
	cur := start
	for remaining > 0 {
		chunk := zero
		if remaining < uint64(len(chunk)) {
			chunk = zero[:remaining]
		}
		writeRange(l, in, cur, chunk)
		cur += uint64(len(chunk))
		remaining -= uint64(len(chunk))
	}
}

// writeRange copies buf into the inode's already-allocated data starting at
// logical file offset offset, using the Block Iterator to resolve blocks.
func writeRange(l *layout.Layout, in layout.InodeView, offset uint64, buf []byte) {
	want := uint64(len(buf))
	if want == 0 {
		return
	}
	var placed uint64
	var curOffset uint64
	blockiter.ForEach(l, in, func(block uint32) bool {
		if placed >= want {
			return false
		}
		blockEnd := curOffset + layout.BlockSize
		if blockEnd <= offset {
			curOffset += layout.BlockSize
			return true
		}
		localStart := uint64(0)
		if offset > curOffset {
			localStart = offset - curOffset
		}
		n := layout.BlockSize - localStart
		if remaining := want - placed; n > remaining {
			n = remaining
		}
		data := l.DataBlock(block)
		copy(data[localStart:localStart+n], buf[placed:placed+n])
		placed += n
		curOffset += layout.BlockSize
		return true
	})
}
