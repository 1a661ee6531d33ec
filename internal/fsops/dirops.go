package fsops

import (
	"github.com/flatfs/flatfs/clock"
	"github.com/flatfs/flatfs/internal/bitmap"
	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/inodealloc"
	"github.com/flatfs/flatfs/internal/layout"
)

// Core bundles the collaborators every fsops operation needs: the bound
// image layout, the block allocator, the inode allocator, and the clock
// capability mtime updates read from (spec.md §9's "clock as a side
// effect" design note).
type Core struct {
	Layout  *layout.Layout
	Bitmap  *bitmap.Allocator
	Inodes  *inodealloc.Allocator
	Clock   clock.Clock
}

func NewCore(l *layout.Layout, clk clock.Clock) *Core {
	return &Core{
		Layout: l,
		Bitmap: bitmap.New(l),
		Inodes: inodealloc.New(l),
		Clock:  clk,
	}
}

func (c *Core) now() (sec int64, nsec int32) {
	t := c.Clock.Now()
	return t.Unix(), int32(t.Nanosecond())
}

// AddEntry implements spec.md §4.5's add_entry: create a new directory
// entry named leaf inside parent_path, backed by a freshly allocated inode
// of the given mode and initial link count.
func (c *Core) AddEntry(path string, mode uint32, initialLinks uint32) error {
	parentPath, leaf := splitParentLeaf(path)
	if len(leaf) > layout.NameMax-1 {
		return ErrNameTooLong
	}
	if c.Layout.Superblock().FreeInodes() == 0 {
		return ErrNoSpace
	}

	parentIdx, err := Resolve(c.Layout, parentPath)
	if err != nil {
		return err
	}
	parent := c.Layout.Inode(parentIdx)
	if !parent.IsDir() {
		return ErrNotDir
	}

	isDir := mode&layout.ModeTypeMask == layout.ModeDir
	if isDir {
		parent.IncNlink()
	}

	if slot, block, ok := c.findEmptySlot(parent); ok {
		return c.placeNewEntry(parent, block, slot, leaf, mode, initialLinks)
	}

	if err := c.Bitmap.GrowInode(parent, layout.BlockSize); err != nil {
		if isDir {
			parent.DecNlink()
		}
		return mapAllocErr(err)
	}
	parent.SetSize(parent.Size() + layout.BlockSize)

	numBlocks := parent.Size() / layout.BlockSize
	block, ok := blockiter.BlockAt(c.Layout, parent, uint32(numBlocks-1))
	if !ok {
		panic("fsops: grow succeeded but new block is unreachable")
	}
	zeroDataBlock(c.Layout, block)
	return c.placeNewEntry(parent, block, 0, leaf, mode, initialLinks)
}

// zeroDataBlock clears a freshly grown directory block before its first
// entry is written. grow_inode only flips bitmap bits and extent records;
// a block a prior file held before unlink/truncate released it can still
// carry non-zero bytes at a name offset, which would read back as a
// phantom occupied entry (I5).
func zeroDataBlock(l *layout.Layout, block uint32) {
	b := l.DataBlock(block)
	for i := range b {
		b[i] = 0
	}
}

// findEmptySlot scans parent's existing blocks for the first empty entry
// slot.
func (c *Core) findEmptySlot(parent layout.InodeView) (slot int, block uint32, ok bool) {
	numBlocks := parent.Size() / layout.BlockSize
	for logical := uint64(0); logical < numBlocks; logical++ {
		b, found := blockiter.BlockAt(c.Layout, parent, uint32(logical))
		if !found {
			return 0, 0, false
		}
		for s := 0; s < layout.DentriesPerBlock; s++ {
			if !c.Layout.Dentry(b, s).Occupied() {
				return s, b, true
			}
		}
	}
	return 0, 0, false
}

func (c *Core) placeNewEntry(parent layout.InodeView, block uint32, slot int, leaf string, mode uint32, initialLinks uint32) error {
	sec, nsec := c.now()
	idx, err := c.Inodes.Alloc(mode, sec, nsec)
	if err != nil {
		return mapAllocErr(err)
	}
	c.Layout.Inode(idx).SetNlink(initialLinks)
	c.Layout.Dentry(block, slot).SetName(leaf, idx)
	return nil
}

// RemoveEntry implements spec.md §4.5's remove_entry.
func (c *Core) RemoveEntry(path string) error {
	parentPath, leaf := splitParentLeaf(path)
	parentIdx, err := Resolve(c.Layout, parentPath)
	if err != nil {
		return err
	}
	parent := c.Layout.Inode(parentIdx)

	slot, block, targetIdx, ok := c.findOccupiedSlot(parent, leaf)
	if !ok {
		return ErrNotFound
	}
	target := c.Layout.Inode(targetIdx)

	if target.IsDir() {
		target.DecNlink() // the entry's own "." self-link
		parent.DecNlink()  // the removed ".." back-reference
	}
	target.DecNlink() // the parent's directory-entry reference

	c.Layout.Dentry(block, slot).Clear()

	if target.Nlink() == 0 {
		c.Bitmap.ShrinkInode(target, 0)
		target.SetSize(0)
		c.Inodes.Free(targetIdx)
	}
	return nil
}

func (c *Core) findOccupiedSlot(dir layout.InodeView, name string) (slot int, block uint32, inode uint32, ok bool) {
	numBlocks := dir.Size() / layout.BlockSize
	for logical := uint64(0); logical < numBlocks; logical++ {
		b, found := blockiter.BlockAt(c.Layout, dir, uint32(logical))
		if !found {
			return 0, 0, 0, false
		}
		for s := 0; s < layout.DentriesPerBlock; s++ {
			d := c.Layout.Dentry(b, s)
			if d.Occupied() && d.Name() == name {
				return s, b, d.InodeNum(), true
			}
		}
	}
	return 0, 0, 0, false
}

// IsEmptyDir reports whether every entry slot in every allocated block of
// dir is unoccupied, for rmdir's precondition check.
func (c *Core) IsEmptyDir(dir layout.InodeView) bool {
	empty := true
	forEachDentry(c.Layout, dir, func(d layout.DentryView) bool {
		if d.Occupied() {
			empty = false
			return false
		}
		return true
	})
	return empty
}

func mapAllocErr(err error) error {
	if err == bitmap.ErrNoSpace || err == inodealloc.ErrNoSpace {
		return ErrNoSpace
	}
	return err
}
