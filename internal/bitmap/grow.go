package bitmap

import "github.com/flatfs/flatfs/internal/layout"

// GrowInode ensures in's allocated byte capacity (its last block, rounded
// up) is at least in.Size()+bytesAdditional, implementing the growth
// algorithm of spec.md §4.1 step by step. It never modifies in.Size(); the
// caller advances the logical size once growth succeeds.
//
// On ErrNoSpace, any extents and bitmap bits already flipped earlier in
// this call remain flipped: spec.md §7 permits this best-effort behavior
// ("must at minimum not leak indirect blocks or extents whose bits were
// never flipped") and every mutation below updates the bitmap bit, the
// extent record, and the free-block counter together, so the image is
// always internally consistent even when a request only partially
// completes.
func (a *Allocator) GrowInode(in layout.InodeView, bytesAdditional uint64) error {
	size := in.Size()

	var slack uint64
	if size%layout.BlockSize != 0 {
		slack = layout.BlockSize - (size % layout.BlockSize)
	}

	var remaining uint64
	if bytesAdditional > slack {
		remaining = bytesAdditional - slack
	}
	blocksNeeded := uint32(ceilDivU64(remaining, layout.BlockSize))
	if blocksNeeded == 0 {
		return nil
	}

	sb := a.l.Superblock()
	if sb.FreeDataBlocks() < blocksNeeded {
		return ErrNoSpace
	}

	extentCount := in.ExtentCount()

	// Step 4: try to extend the last extent into its own trailing free run
	// before allocating anything new.
	if extentCount > 0 {
		last := a.l.ExtentAt(in, int(extentCount)-1)
		r := a.TailLength(last.Start + last.Count)
		t := minU32(r, blocksNeeded)
		if t > 0 {
			a.Mark(last.Start+last.Count, t, true)
			last.Count += t
			a.l.SetExtentAt(in, int(extentCount)-1, last)
			sb.DecFreeDataBlocks(t)
			blocksNeeded -= t
		}
	}

	for blocksNeeded > 0 {
		if extentCount == layout.MaxExtents {
			return ErrNoSpace
		}

		if extentCount == layout.InlineExtents {
			s, l := a.FindFreeRun(1)
			if l == 0 {
				return ErrNoSpace
			}
			a.Mark(s, 1, true)
			sb.DecFreeDataBlocks(1)
			in.SetIndirect(s)
		}

		s, l := a.FindFreeRun(blocksNeeded)
		if l == 0 {
			if extentCount == layout.InlineExtents {
				// No extent will live in the indirect block just taken.
				a.releaseIndirect(in)
			}
			return ErrNoSpace
		}
		a.Mark(s, l, true)
		a.l.SetExtentAt(in, int(extentCount), layout.Extent{Start: s, Count: l})
		extentCount++
		in.SetExtentCount(extentCount)
		sb.DecFreeDataBlocks(l)
		blocksNeeded -= l
	}

	return nil
}
