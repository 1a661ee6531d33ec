package layout

import (
	"encoding/binary"
	"fmt"
)

// Layout binds a mapped image region to the typed views spec.md §3
// describes: superblock, data-block bitmap, inode table, and data region.
// It is the only place in the module that turns a raw byte offset into a
// sub-slice; everything above this package addresses the image through
// Layout's accessors.
type Layout struct {
	region []byte
	sb     SuperblockView
}

// Bind validates region as a recognized image (per spec §6's recognition
// rule) and returns a Layout bound to it. It performs no allocation of its
// own; region must already be exactly ImageSize bytes (the Image Mapper's
// job).
func Bind(region []byte) (*Layout, error) {
	if len(region) < 2*BlockSize {
		return nil, fmt.Errorf("layout: image too small to hold a superblock")
	}
	sb := newSuperblockView(region[BlockSize : 2*BlockSize])

	l := &Layout{region: region, sb: sb}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// BindUnchecked binds a Layout without validating the superblock, for use by
// the formatter while it is still writing that superblock for the first
// time.
func BindUnchecked(region []byte) *Layout {
	return &Layout{region: region, sb: newSuperblockView(region[BlockSize : 2*BlockSize])}
}

func (l *Layout) validate() error {
	sb := l.sb
	if sb.Magic() != SuperblockMagic {
		return fmt.Errorf("layout: bad magic %#x", sb.Magic())
	}
	if sb.BitmapStart() != 2 {
		return fmt.Errorf("layout: bitmap must start at block 2, got %d", sb.BitmapStart())
	}
	bd := sb.InodeTableStart() - sb.BitmapStart()
	bi := sb.DataStart() - sb.InodeTableStart()
	if sb.InodeTableStart() != 2+bd {
		return fmt.Errorf("layout: inode table start inconsistent with bitmap size")
	}
	if sb.DataStart() != 2+bd+bi {
		return fmt.Errorf("layout: data region start inconsistent with inode table size")
	}
	expectedSize := uint64(sb.DataStart()+sb.TotalDataBlocks()) * BlockSize
	if expectedSize != sb.ImageSize() {
		return fmt.Errorf("layout: data region plus Bt blocks does not cover declared image size")
	}
	if uint64(len(l.region)) != sb.ImageSize() {
		return fmt.Errorf("layout: mapped region size %d does not match superblock image size %d", len(l.region), sb.ImageSize())
	}
	return nil
}

// Superblock returns the typed superblock view.
func (l *Layout) Superblock() SuperblockView { return l.sb }

// bitmapByteLen is the number of bytes the data bitmap occupies.
func (l *Layout) bitmapByteLen() uint64 {
	return uint64(l.sb.InodeTableStart()-l.sb.BitmapStart()) * BlockSize
}

// Bitmap returns the raw bytes of the data-block bitmap. One bit per data
// block; bit i corresponds to data block i.
func (l *Layout) Bitmap() []byte {
	start := uint64(l.sb.BitmapStart()) * BlockSize
	return l.region[start : start+l.bitmapByteLen()]
}

func (l *Layout) inodeBytes(idx uint32) []byte {
	off := uint64(l.sb.InodeTableStart())*BlockSize + uint64(idx)*InodeSize
	return l.region[off : off+InodeSize]
}

// Inode returns the typed view for inode number idx. Callers are
// responsible for bounds-checking idx against TotalInodes(); this mirrors
// spec.md's design note of keeping unsafe offset math inside a handful of
// small, auditable accessors; the bounds check itself lives one layer up,
// where the error can be reported as part of a richer operation error.
func (l *Layout) Inode(idx uint32) InodeView {
	return newInodeView(l.inodeBytes(idx))
}

// DataBlock returns the raw bytes of data-region block b (0-indexed within
// the data region, as used throughout Extent.Start).
func (l *Layout) DataBlock(b uint32) []byte {
	off := uint64(l.sb.DataStart()+b) * BlockSize
	return l.region[off : off+BlockSize]
}

// Dentry returns the typed view for directory-entry slot i (0-indexed)
// within data block b.
func (l *Layout) Dentry(b uint32, i int) DentryView {
	blk := l.DataBlock(b)
	return newDentryView(blk[i*DirEntrySize : (i+1)*DirEntrySize])
}

// indirectExtentSlot returns the bytes of indirect-extent record i (0-based
// within the indirect block, i.e. logical extent index i+InlineExtents).
func (l *Layout) indirectExtentSlot(indirectBlock uint32, i int) []byte {
	blk := l.DataBlock(indirectBlock)
	off := i * extentSize
	return blk[off : off+extentSize]
}

// ExtentAt returns logical extent i of inode in, resolving through the
// inline array or the indirect block as needed. i must be < in.ExtentCount().
func (l *Layout) ExtentAt(in InodeView, i int) Extent {
	if i < InlineExtents {
		return in.inlineExtent(i)
	}
	s := l.indirectExtentSlot(in.Indirect(), i-InlineExtents)
	return Extent{
		Start: binary.LittleEndian.Uint32(s[0:4]),
		Count: binary.LittleEndian.Uint32(s[4:8]),
	}
}

// SetExtentAt writes logical extent i of inode in.
func (l *Layout) SetExtentAt(in InodeView, i int, e Extent) {
	if i < InlineExtents {
		in.setInlineExtent(i, e)
		return
	}
	s := l.indirectExtentSlot(in.Indirect(), i-InlineExtents)
	binary.LittleEndian.PutUint32(s[0:4], e.Start)
	binary.LittleEndian.PutUint32(s[4:8], e.Count)
}
