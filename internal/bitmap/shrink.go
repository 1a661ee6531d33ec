package bitmap

import "github.com/flatfs/flatfs/internal/layout"

// ShrinkInode frees every data block whose logical position is at or past
// newSize, per spec.md §4.1's shrink algorithm. It does not modify
// in.Size(); the caller sets the new size once shrinking completes.
//
// The indirect extent block is released at most once, exactly when the
// extent count transitions from InlineExtents+1 down to InlineExtents —
// spec.md §9 flags the original source's per-block-in-the-inner-loop
// release as capable of over-crediting the free counter across multiple
// extents, and resolves it this way instead.
func (a *Allocator) ShrinkInode(in layout.InodeView, newSize uint64) {
	sb := a.l.Superblock()
	keepBlocks := ceilDivU64(newSize, layout.BlockSize)

	ec := in.ExtentCount()
	var cum uint64 // logical blocks consumed by extents processed so far
	i := 0
	for i < int(ec) {
		e := a.l.ExtentAt(in, i)

		kept := int64(keepBlocks) - int64(cum)
		if kept < 0 {
			kept = 0
		}
		if kept > int64(e.Count) {
			kept = int64(e.Count)
		}
		freed := e.Count - uint32(kept)

		if freed > 0 {
			a.Mark(e.Start+uint32(kept), freed, false)
			sb.IncFreeDataBlocks(freed)
		}
		cum += uint64(e.Count)

		if kept == 0 {
			ecBefore := ec
			a.removeExtentSlot(in, i, ec)
			ec--
			in.SetExtentCount(ec)
			if ecBefore == layout.InlineExtents+1 {
				a.releaseIndirect(in)
			}
			continue // the next extent has shifted into slot i
		}

		e.Count = uint32(kept)
		a.l.SetExtentAt(in, i, e)
		i++
	}
}

// removeExtentSlot deletes logical extent i, shifting every extent after it
// down by one. ec is the extent count before the removal.
func (a *Allocator) removeExtentSlot(in layout.InodeView, i int, ec uint32) {
	for j := i; j < int(ec)-1; j++ {
		a.l.SetExtentAt(in, j, a.l.ExtentAt(in, j+1))
	}
}

func (a *Allocator) releaseIndirect(in layout.InodeView) {
	sb := a.l.Superblock()
	blk := in.Indirect()
	a.Mark(blk, 1, false)
	sb.IncFreeDataBlocks(1)
	in.SetIndirect(0)
}
