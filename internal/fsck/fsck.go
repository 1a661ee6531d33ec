// Package fsck implements the Consistency Checker from SPEC_FULL.md: a
// standalone pass over a mapped, unmounted image that checks spec.md §3's
// invariants I1-I8 (equivalently, §8's P1-P4), accumulating every
// violation it finds instead of stopping at the first.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	gobitmap "github.com/boljen/go-bitmap"

	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/layout"
)

// Check walks l and returns every invariant violation found, as a single
// *multierror.Error (nil if the image is clean).
func Check(l *layout.Layout) error {
	var result *multierror.Error

	checkBitmapAccounting(l, &result)
	checkExtentDisjointness(l, &result)
	checkDirectories(l, &result)
	checkRoot(l, &result)

	return result.ErrorOrNil()
}

// checkBitmapAccounting verifies I1: the free counters match what the
// bitmap and inode table actually record.
func checkBitmapAccounting(l *layout.Layout, result **multierror.Error) {
	sb := l.Superblock()
	bm := gobitmap.Bitmap(l.Bitmap())

	var zeroBits uint32
	for i := uint32(0); i < sb.TotalDataBlocks(); i++ {
		if !bm.Get(int(i)) {
			zeroBits++
		}
	}
	if zeroBits != sb.FreeDataBlocks() {
		*result = multierror.Append(*result, fmt.Errorf("I1: free_data_blocks=%d but bitmap has %d zero bits", sb.FreeDataBlocks(), zeroBits))
	}

	var freeInodes uint32
	for i := uint32(0); i < sb.TotalInodes(); i++ {
		if l.Inode(i).Free() {
			freeInodes++
		}
	}
	if freeInodes != sb.FreeInodes() {
		*result = multierror.Append(*result, fmt.Errorf("I1: free_inodes=%d but %d inode slots have link count 0", sb.FreeInodes(), freeInodes))
	}
}

// checkExtentDisjointness verifies I2/I3/I4: every allocated block belongs
// to exactly one inode's extents or indirect block, and every bit an inode
// claims is actually set.
func checkExtentDisjointness(l *layout.Layout, result **multierror.Error) {
	sb := l.Superblock()
	bm := gobitmap.Bitmap(l.Bitmap())
	owner := make(map[uint32]uint32) // data block -> owning inode

	claim := func(block, inode uint32, what string) {
		if prev, ok := owner[block]; ok {
			*result = multierror.Append(*result, fmt.Errorf("I3: data block %d claimed by both inode %d and inode %d (%s)", block, prev, inode, what))
			return
		}
		owner[block] = inode
		if !bm.Get(int(block)) {
			*result = multierror.Append(*result, fmt.Errorf("I2: data block %d is part of inode %d's %s but its bitmap bit is 0", block, inode, what))
		}
	}

	for i := uint32(0); i < sb.TotalInodes(); i++ {
		in := l.Inode(i)
		if in.Free() {
			continue
		}
		ec := in.ExtentCount()
		if ec > layout.InlineExtents && in.Indirect() == 0 {
			*result = multierror.Append(*result, fmt.Errorf("I4: inode %d has extent count %d > %d but no indirect block allocated", i, ec, layout.InlineExtents))
		}
		if ec > layout.InlineExtents {
			claim(in.Indirect(), i, "indirect block")
		}
		for j := 0; j < int(ec); j++ {
			e := l.ExtentAt(in, j)
			for b := e.Start; b < e.Start+e.Count; b++ {
				claim(b, i, "extent")
			}
		}
	}

	expected := sb.TotalDataBlocks() - sb.FreeDataBlocks()
	if uint32(len(owner)) != expected {
		*result = multierror.Append(*result, fmt.Errorf("P2: %d data blocks are claimed by inodes, expected %d (total %d minus free %d)", len(owner), expected, sb.TotalDataBlocks(), sb.FreeDataBlocks()))
	}
}

// checkDirectories verifies I5/I6/I8: directory sizes, slot occupancy
// sentinels, link counts versus subdirectory counts, and name uniqueness.
func checkDirectories(l *layout.Layout, result **multierror.Error) {
	sb := l.Superblock()
	for i := uint32(0); i < sb.TotalInodes(); i++ {
		in := l.Inode(i)
		if in.Free() || !in.IsDir() {
			continue
		}
		if in.Size()%layout.BlockSize != 0 {
			*result = multierror.Append(*result, fmt.Errorf("I5: directory inode %d has non-block-multiple size %d", i, in.Size()))
			continue
		}

		subdirs := uint32(0)
		names := make(map[string]bool)
		numBlocks := in.Size() / layout.BlockSize
		for logical := uint64(0); logical < numBlocks; logical++ {
			block, ok := blockiter.BlockAt(l, in, uint32(logical))
			if !ok {
				*result = multierror.Append(*result, fmt.Errorf("I5: directory inode %d size implies %d blocks but its extents cover fewer", i, numBlocks))
				break
			}
			for slot := 0; slot < layout.DentriesPerBlock; slot++ {
				d := l.Dentry(block, slot)
				if !d.Occupied() {
					continue
				}
				name := d.Name()
				if names[name] {
					*result = multierror.Append(*result, fmt.Errorf("I8: directory inode %d has duplicate entry name %q", i, name))
				}
				names[name] = true
				if child := l.Inode(d.InodeNum()); child.IsDir() {
					subdirs++
				}
			}
		}

		if in.Nlink() != 2+subdirs {
			*result = multierror.Append(*result, fmt.Errorf("I6: directory inode %d has nlink=%d, expected 2+%d=%d", i, in.Nlink(), subdirs, 2+subdirs))
		}
	}
}

// checkRoot verifies I7: inode 0 is a directory, never freed, nlink >= 2.
func checkRoot(l *layout.Layout, result **multierror.Error) {
	root := l.Inode(layout.RootInode)
	if root.Free() {
		*result = multierror.Append(*result, fmt.Errorf("I7: root inode is free"))
		return
	}
	if !root.IsDir() {
		*result = multierror.Append(*result, fmt.Errorf("I7: root inode is not a directory"))
	}
	if root.Nlink() < 2 {
		*result = multierror.Append(*result, fmt.Errorf("I7: root inode has nlink=%d, expected >= 2", root.Nlink()))
	}
}
