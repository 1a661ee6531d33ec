package layout

import "encoding/binary"

// Superblock field offsets within block 1. All multi-byte integers are
// little-endian, matching the formatter and driver on every platform they
// both run on.
const (
	sbMagic           = 0
	sbImageSize       = 4
	sbTotalInodes     = 12
	sbFreeInodes      = 16
	sbTotalDataBlocks = 20
	sbFreeDataBlocks  = 24
	sbBitmapStart     = 28
	sbInodeTableStart = 32
	sbDataStart       = 36
	sbUUID            = 40
	sbMinSize         = 56
)

// SuperblockView is a checked accessor over the one-block superblock region.
type SuperblockView struct {
	b []byte
}

// newSuperblockView wraps exactly one block's worth of bytes.
func newSuperblockView(b []byte) SuperblockView {
	if len(b) < sbMinSize {
		panic("layout: superblock region smaller than minimum superblock size")
	}
	return SuperblockView{b: b}
}

func (v SuperblockView) Magic() uint32       { return binary.LittleEndian.Uint32(v.b[sbMagic:]) }
func (v SuperblockView) SetMagic(m uint32)   { binary.LittleEndian.PutUint32(v.b[sbMagic:], m) }
func (v SuperblockView) ImageSize() uint64   { return binary.LittleEndian.Uint64(v.b[sbImageSize:]) }
func (v SuperblockView) SetImageSize(n uint64) {
	binary.LittleEndian.PutUint64(v.b[sbImageSize:], n)
}

func (v SuperblockView) TotalInodes() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbTotalInodes:])
}
func (v SuperblockView) SetTotalInodes(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbTotalInodes:], n)
}

func (v SuperblockView) FreeInodes() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbFreeInodes:])
}
func (v SuperblockView) SetFreeInodes(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbFreeInodes:], n)
}

func (v SuperblockView) TotalDataBlocks() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbTotalDataBlocks:])
}
func (v SuperblockView) SetTotalDataBlocks(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbTotalDataBlocks:], n)
}

func (v SuperblockView) FreeDataBlocks() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbFreeDataBlocks:])
}
func (v SuperblockView) SetFreeDataBlocks(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbFreeDataBlocks:], n)
}

func (v SuperblockView) BitmapStart() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbBitmapStart:])
}
func (v SuperblockView) SetBitmapStart(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbBitmapStart:], n)
}

func (v SuperblockView) InodeTableStart() uint32 {
	return binary.LittleEndian.Uint32(v.b[sbInodeTableStart:])
}
func (v SuperblockView) SetInodeTableStart(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbInodeTableStart:], n)
}

func (v SuperblockView) DataStart() uint32 { return binary.LittleEndian.Uint32(v.b[sbDataStart:]) }
func (v SuperblockView) SetDataStart(n uint32) {
	binary.LittleEndian.PutUint32(v.b[sbDataStart:], n)
}

// UUID returns the image identifier stamped by mkfs. It is informational
// only: no on-disk invariant depends on it.
func (v SuperblockView) UUID() [16]byte {
	var u [16]byte
	copy(u[:], v.b[sbUUID:sbUUID+16])
	return u
}

func (v SuperblockView) SetUUID(u [16]byte) {
	copy(v.b[sbUUID:sbUUID+16], u[:])
}

// IncFreeInodes and DecFreeInodes keep I1's counter invariant close to its
// single point of mutation, rather than scattering +=1/-=1 across callers.
func (v SuperblockView) IncFreeInodes() { v.SetFreeInodes(v.FreeInodes() + 1) }
func (v SuperblockView) DecFreeInodes() { v.SetFreeInodes(v.FreeInodes() - 1) }

func (v SuperblockView) IncFreeDataBlocks(n uint32) {
	v.SetFreeDataBlocks(v.FreeDataBlocks() + n)
}
func (v SuperblockView) DecFreeDataBlocks(n uint32) {
	v.SetFreeDataBlocks(v.FreeDataBlocks() - n)
}
