package layout

import "fmt"

// Geometry holds the block counts the formatter derives from an image size
// and requested inode count, per spec.md §3.
type Geometry struct {
	BitmapBlocks     uint32 // Bd
	InodeTableBlocks uint32 // Bi
	DataBlocks       uint32 // Bt
}

// ComputeGeometry implements spec.md §3's sizing formulas:
//
//	Bi = ceil(N * sizeof(inode) / B)
//	Bd = ceil((S/B - 2 - Bi) / (8*B + 1))
//	Bt = (S/B - 2 - Bi) - Bd
//
// It returns an error if N is zero or the image is too small to hold even
// an empty layout (Bt would be negative).
func ComputeGeometry(imageSize uint64, inodeCount uint32) (Geometry, error) {
	if inodeCount == 0 {
		return Geometry{}, fmt.Errorf("layout: inode count must be positive")
	}
	if imageSize%BlockSize != 0 {
		return Geometry{}, fmt.Errorf("layout: image size must be a multiple of %d bytes", BlockSize)
	}

	totalBlocks := imageSize / BlockSize
	bi := ceilDiv(uint64(inodeCount)*InodeSize, BlockSize)

	if totalBlocks < 2+bi {
		return Geometry{}, fmt.Errorf("layout: image too small to hold superblock and inode table for %d inodes", inodeCount)
	}
	remaining := totalBlocks - 2 - bi
	bd := ceilDiv(remaining, 8*BlockSize+1)
	if remaining < bd {
		return Geometry{}, fmt.Errorf("layout: image too small to hold a data bitmap")
	}
	bt := remaining - bd

	return Geometry{
		BitmapBlocks:     uint32(bd),
		InodeTableBlocks: uint32(bi),
		DataBlocks:       uint32(bt),
	}, nil
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
