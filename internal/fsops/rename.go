package fsops

import (
	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/layout"
)

// Rename implements the rename(old_path, new_path) supplement from
// SPEC_FULL.md's Directory Ops expansion. There is no a1fs_rename in
// original_source to port; this is a spec-original addition grounded on
// the standard POSIX rename(2) contract.
func (c *Core) Rename(oldPath, newPath string) error {
	oldParentPath, oldLeaf := splitParentLeaf(oldPath)
	newParentPath, newLeaf := splitParentLeaf(newPath)

	oldParentIdx, err := Resolve(c.Layout, oldParentPath)
	if err != nil {
		return err
	}
	newParentIdx, err := Resolve(c.Layout, newParentPath)
	if err != nil {
		return err
	}
	oldParent := c.Layout.Inode(oldParentIdx)
	newParent := c.Layout.Inode(newParentIdx)
	if !oldParent.IsDir() || !newParent.IsDir() {
		return ErrNotDir
	}

	oldSlot, oldBlock, srcIdx, ok := c.findOccupiedSlot(oldParent, oldLeaf)
	if !ok {
		return ErrNotFound
	}

	if oldParentIdx == newParentIdx && oldLeaf == newLeaf {
		return nil
	}

	src := c.Layout.Inode(srcIdx)
	if src.IsDir() {
		if newParentIdx == srcIdx || c.isWithinSubtree(srcIdx, newParentIdx) {
			return ErrInvalid
		}
	}

	if dstSlot, dstBlock, dstIdx, exists := c.findOccupiedSlot(newParent, newLeaf); exists {
		dst := c.Layout.Inode(dstIdx)
		switch {
		case dst.IsDir() && src.IsDir():
			if !c.IsEmptyDir(dst) {
				return ErrNotEmpty
			}
			c.destroyTarget(newParent, dst, dstIdx)
		case !dst.IsDir() && !src.IsDir():
			c.destroyTarget(newParent, dst, dstIdx)
		case dst.IsDir():
			return ErrIsDir
		default:
			return ErrNotDir
		}
		c.Layout.Dentry(dstBlock, dstSlot).SetName(newLeaf, srcIdx)
	} else if err := c.insertEntry(newParent, newLeaf, srcIdx); err != nil {
		return err
	}

	// A moved directory's own implicit reference to its parent (the one
	// "." and ".." synthesize at readdir time) now points at newParent
	// instead of oldParent: credit/debit their link counts the same way
	// add_entry/remove_entry do for a freshly created/removed directory.
	// Same-parent renames net to zero, so only act when they differ.
	if src.IsDir() && oldParentIdx != newParentIdx {
		oldParent.DecNlink()
		newParent.IncNlink()
	}

	c.Layout.Dentry(oldBlock, oldSlot).Clear()
	return nil
}

// destroyTarget removes dst's own nlink exactly as RemoveEntry's step 2-3
// would, without touching its directory entry (the caller overwrites that
// slot directly).
func (c *Core) destroyTarget(parent, dst layout.InodeView, dstIdx uint32) {
	if dst.IsDir() {
		dst.DecNlink()
		parent.DecNlink()
	}
	dst.DecNlink()
	if dst.Nlink() == 0 {
		c.Bitmap.ShrinkInode(dst, 0)
		dst.SetSize(0)
		c.Inodes.Free(dstIdx)
	}
}

// insertEntry places a new directory entry pointing at an already-existing
// inode (used by rename, which moves an inode rather than allocating one).
func (c *Core) insertEntry(parent layout.InodeView, name string, inode uint32) error {
	if slot, block, ok := c.findEmptySlot(parent); ok {
		c.Layout.Dentry(block, slot).SetName(name, inode)
		return nil
	}
	if err := c.Bitmap.GrowInode(parent, layout.BlockSize); err != nil {
		return mapAllocErr(err)
	}
	parent.SetSize(parent.Size() + layout.BlockSize)
	numBlocks := parent.Size() / layout.BlockSize
	block, ok := blockiter.BlockAt(c.Layout, parent, uint32(numBlocks-1))
	if !ok {
		panic("fsops: grow succeeded but new block is unreachable")
	}
	zeroDataBlock(c.Layout, block)
	c.Layout.Dentry(block, 0).SetName(name, inode)
	return nil
}

// isWithinSubtree reports whether target is reachable by walking occupied
// directory entries down from root. It does not report target == root
// itself; Rename checks that case before calling it. A conventional
// rename-into-own-descendant check walks ".." pointers up from the
// destination, but those links aren't stored in this layout (readdir
// synthesizes "." and ".." instead), so the only walk available over real
// stored links is downward, from the source.
func (c *Core) isWithinSubtree(root, target uint32) bool {
	found := false
	forEachDentry(c.Layout, c.Layout.Inode(root), func(d layout.DentryView) bool {
		if !d.Occupied() {
			return true
		}
		child := d.InodeNum()
		if child == target {
			found = true
			return false
		}
		if c.Layout.Inode(child).IsDir() && c.isWithinSubtree(child, target) {
			found = true
			return false
		}
		return true
	})
	return found
}
