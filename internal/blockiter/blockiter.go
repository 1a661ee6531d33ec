// Package blockiter implements the Block Iterator from spec.md §4.3: a
// lazy walk over an inode's data blocks in logical file order, resolving
// each extent's position through the inline array and, past InlineExtents,
// the indirect extent block.
package blockiter

import (
	"github.com/flatfs/flatfs/internal/layout"
)

// Iterator walks the data blocks an inode owns, in increasing logical
// offset order. Its zero value is not usable; construct one with New.
type Iterator struct {
	l  *layout.Layout
	in layout.InodeView

	extentIdx    int
	extentsTotal int
	curExtent    layout.Extent
	offInExtent  uint32
}

// New returns an Iterator positioned before the first block of in.
func New(l *layout.Layout, in layout.InodeView) *Iterator {
	it := &Iterator{l: l, in: in, extentsTotal: int(in.ExtentCount())}
	if it.extentsTotal > 0 {
		it.curExtent = l.ExtentAt(in, 0)
	}
	return it
}

// Next advances to the next logical block and returns its data-region block
// number. The second return value is false once every extent is exhausted.
func (it *Iterator) Next() (block uint32, ok bool) {
	for it.extentIdx < it.extentsTotal {
		if it.offInExtent < it.curExtent.Count {
			block = it.curExtent.Start + it.offInExtent
			it.offInExtent++
			return block, true
		}
		it.extentIdx++
		it.offInExtent = 0
		if it.extentIdx < it.extentsTotal {
			it.curExtent = it.l.ExtentAt(it.in, it.extentIdx)
		}
	}
	return 0, false
}

// BlockAt returns the data-region block number holding logical block index
// logicalBlock (0-based), and whether in owns that many blocks at all. It
// does not depend on iteration order and may be called directly without
// exhausting a shared Iterator.
func BlockAt(l *layout.Layout, in layout.InodeView, logicalBlock uint32) (block uint32, ok bool) {
	var cum uint32
	ec := int(in.ExtentCount())
	for i := 0; i < ec; i++ {
		e := l.ExtentAt(in, i)
		if logicalBlock < cum+e.Count {
			return e.Start + (logicalBlock - cum), true
		}
		cum += e.Count
	}
	return 0, false
}

// ForEach calls fn with every data-region block number in holds, in logical
// order, stopping early if fn returns false.
func ForEach(l *layout.Layout, in layout.InodeView, fn func(block uint32) bool) {
	it := New(l, in)
	for {
		b, ok := it.Next()
		if !ok {
			return
		}
		if !fn(b) {
			return
		}
	}
}
