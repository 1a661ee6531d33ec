// Package layout defines the on-disk structures of the image and binds a
// mapped byte region to typed, bounds-checked views over them.
//
// Nothing in this package performs I/O: callers hand it the full mapped
// image ([]byte, acquired via internal/image) and get back views whose
// getters and setters read and write that same memory directly. There is no
// decode-mutate-encode round trip to forget.
package layout


// BlockSize is the fixed unit of image addressing, B in the spec.
const BlockSize = 4096

// SuperblockMagic identifies a valid image.
const SuperblockMagic = 0xA1F5B10C

// InodeSize is the fixed size of one inode record.
const InodeSize = 256

// DirEntrySize is the fixed size of one directory-entry slot.
const DirEntrySize = 256

// NameMax is the maximum component name length, including the terminator.
const NameMax = 252

// PathMax is the maximum path length, including the terminator.
const PathMax = 4096

// InlineExtents is K, the capacity of an inode's inline extent array.
const InlineExtents = 10

// MaxExtents is the hard ceiling on the number of extents an inode may own.
const MaxExtents = 512

// extentSize is the packed size of one Extent record: two uint32s.
const extentSize = 8

// InodesPerBlock is the number of inode records that fit in one block.
const InodesPerBlock = BlockSize / InodeSize

// DentriesPerBlock is the number of directory-entry slots that fit in one
// data block.
const DentriesPerBlock = BlockSize / DirEntrySize

// RootInode is the fixed inode number of the root directory.
const RootInode = 0

// POSIX-style mode bits the spec asks us to store verbatim.
const (
	ModeTypeMask = 0170000
	ModeDir      = 0040000
	ModeReg      = 0100000
)

// Extent is a contiguous run of data blocks owned by one inode.
type Extent struct {
	Start uint32
	Count uint32
}

// Empty reports whether the extent has a zero run length.
func (e Extent) Empty() bool { return e.Count == 0 }
