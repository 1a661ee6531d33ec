// Package mkfs implements the Formatter from spec.md §4.8: writing a fresh,
// consistent image into a mapped region.
package mkfs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flatfs/flatfs/internal/layout"
)

// ErrAlreadyFormatted is returned when region already carries a valid
// superblock and Format was not told to overwrite it.
var ErrAlreadyFormatted = errors.New("mkfs: image already has a valid superblock")

// Options controls Format, mirroring the mkfs CLI flags in spec.md §6.
type Options struct {
	InodeCount uint32
	Zero       bool // -z: zero the entire image first
	Force      bool // -f: overwrite an existing valid image
}

// Format writes an initial image into region, per spec.md §4.8. region's
// length is the image size S and must already be a multiple of
// layout.BlockSize.
func Format(region []byte, opts Options) (*layout.Layout, error) {
	if opts.InodeCount == 0 {
		return nil, errors.New("mkfs: inode count must be > 0")
	}
	if len(region)%layout.BlockSize != 0 {
		return nil, errors.New("mkfs: image size must be a multiple of the block size")
	}

	geo, err := layout.ComputeGeometry(uint64(len(region)), opts.InodeCount)
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	if !opts.Force && hasValidSuperblock(region) {
		return nil, ErrAlreadyFormatted
	}

	if opts.Zero {
		for i := range region {
			region[i] = 0
		}
	}

	l := layout.BindUnchecked(region)
	sb := l.Superblock()
	sb.SetMagic(layout.SuperblockMagic)
	sb.SetImageSize(uint64(len(region)))
	sb.SetTotalInodes(opts.InodeCount)
	sb.SetFreeInodes(opts.InodeCount)
	sb.SetTotalDataBlocks(geo.DataBlocks)
	sb.SetFreeDataBlocks(geo.DataBlocks)
	sb.SetBitmapStart(2)
	sb.SetInodeTableStart(2 + geo.BitmapBlocks)
	sb.SetDataStart(2 + geo.BitmapBlocks + geo.InodeTableBlocks)
	sb.SetUUID(uuidBytes())

	// Zero every inode-table block so every slot starts with link count 0,
	// and the data bitmap so every block starts free.
	zeroRegion(l.Bitmap())
	for i := uint32(0); i < geo.InodeTableBlocks; i++ {
		zeroRegion(region[uint64(sb.InodeTableStart()+i)*layout.BlockSize : uint64(sb.InodeTableStart()+i+1)*layout.BlockSize])
	}

	root := l.Inode(layout.RootInode)
	root.SetMode(layout.ModeDir | 0777)
	root.SetNlink(2)
	sb.DecFreeInodes()

	bound, err := layout.Bind(region)
	if err != nil {
		return nil, fmt.Errorf("mkfs: formatted image failed self-validation: %w", err)
	}
	return bound, nil
}

// hasValidSuperblock reports whether region already looks like a
// recognized image, per spec.md §6's recognition rule.
func hasValidSuperblock(region []byte) bool {
	if _, err := layout.Bind(region); err != nil {
		return false
	}
	return true
}

func zeroRegion(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func uuidBytes() [16]byte {
	var out [16]byte
	copy(out[:], uuid.New()[:])
	return out
}
