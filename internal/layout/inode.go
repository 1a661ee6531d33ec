package layout

import "encoding/binary"

// Inode field offsets within one InodeSize-byte record.
const (
	inMode        = 0
	inNlink       = 4
	inSize        = 8
	inMtimeSec    = 16
	inMtimeNsec   = 24
	inExtentCount = 28
	inIndirect    = 32
	inExtents     = 36 // InlineExtents * extentSize bytes follow
)

// InodeView is a checked accessor over one inode record's bytes.
type InodeView struct {
	b []byte
}

func newInodeView(b []byte) InodeView {
	if len(b) < InodeSize {
		panic("layout: inode region smaller than InodeSize")
	}
	return InodeView{b: b[:InodeSize]}
}

// Free reports whether this slot holds no live inode (spec I1: link count
// zero means free).
func (v InodeView) Free() bool { return v.Nlink() == 0 }

func (v InodeView) Mode() uint32     { return binary.LittleEndian.Uint32(v.b[inMode:]) }
func (v InodeView) SetMode(m uint32) { binary.LittleEndian.PutUint32(v.b[inMode:], m) }

func (v InodeView) IsDir() bool { return v.Mode()&ModeTypeMask == ModeDir }

func (v InodeView) Nlink() uint32     { return binary.LittleEndian.Uint32(v.b[inNlink:]) }
func (v InodeView) SetNlink(n uint32) { binary.LittleEndian.PutUint32(v.b[inNlink:], n) }
func (v InodeView) IncNlink()         { v.SetNlink(v.Nlink() + 1) }
func (v InodeView) DecNlink()         { v.SetNlink(v.Nlink() - 1) }

func (v InodeView) Size() uint64     { return binary.LittleEndian.Uint64(v.b[inSize:]) }
func (v InodeView) SetSize(s uint64) { binary.LittleEndian.PutUint64(v.b[inSize:], s) }

// Mtime returns the modification time as (seconds, nanoseconds) since the
// Unix epoch.
func (v InodeView) Mtime() (sec int64, nsec int32) {
	sec = int64(binary.LittleEndian.Uint64(v.b[inMtimeSec:]))
	nsec = int32(binary.LittleEndian.Uint32(v.b[inMtimeNsec:]))
	return
}

func (v InodeView) SetMtime(sec int64, nsec int32) {
	binary.LittleEndian.PutUint64(v.b[inMtimeSec:], uint64(sec))
	binary.LittleEndian.PutUint32(v.b[inMtimeNsec:], uint32(nsec))
}

func (v InodeView) ExtentCount() uint32 {
	return binary.LittleEndian.Uint32(v.b[inExtentCount:])
}
func (v InodeView) SetExtentCount(n uint32) {
	binary.LittleEndian.PutUint32(v.b[inExtentCount:], n)
}

func (v InodeView) Indirect() uint32     { return binary.LittleEndian.Uint32(v.b[inIndirect:]) }
func (v InodeView) SetIndirect(b uint32) { binary.LittleEndian.PutUint32(v.b[inIndirect:], b) }

// inlineExtent reads/writes inline extent slot i directly (i must be < InlineExtents).
func (v InodeView) inlineExtent(i int) Extent {
	off := inExtents + i*extentSize
	return Extent{
		Start: binary.LittleEndian.Uint32(v.b[off:]),
		Count: binary.LittleEndian.Uint32(v.b[off+4:]),
	}
}

func (v InodeView) setInlineExtent(i int, e Extent) {
	off := inExtents + i*extentSize
	binary.LittleEndian.PutUint32(v.b[off:], e.Start)
	binary.LittleEndian.PutUint32(v.b[off+4:], e.Count)
}

// Reset zeroes the whole record, marking the slot free (Nlink == 0).
func (v InodeView) Reset() {
	for i := range v.b {
		v.b[i] = 0
	}
}
