package layout

import "encoding/binary"

const (
	deInode = 0
	deName  = 4 // NameMax bytes follow
)

// DentryView is a checked accessor over one directory-entry slot.
type DentryView struct {
	b []byte
}

func newDentryView(b []byte) DentryView {
	if len(b) < DirEntrySize {
		panic("layout: dentry region smaller than DirEntrySize")
	}
	return DentryView{b: b[:DirEntrySize]}
}

// Occupied reports whether the slot names a live entry (spec: first name
// byte non-zero).
func (v DentryView) Occupied() bool { return v.b[deName] != 0 }

func (v DentryView) InodeNum() uint32 { return binary.LittleEndian.Uint32(v.b[deInode:]) }
func (v DentryView) SetInodeNum(n uint32) {
	binary.LittleEndian.PutUint32(v.b[deInode:], n)
}

// Name returns the entry's name as a Go string, stopping at the first NUL.
func (v DentryView) Name() string {
	raw := v.b[deName : deName+NameMax]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// SetName writes name plus terminator, then the inode number. name must fit
// in NameMax-1 bytes; callers check this before calling (ENAMETOOLONG).
func (v DentryView) SetName(name string, inode uint32) {
	raw := v.b[deName : deName+NameMax]
	for i := range raw {
		raw[i] = 0
	}
	copy(raw, name)
	v.SetInodeNum(inode)
}

// Clear destroys the entry by zeroing its first name byte, per spec's
// occupancy sentinel.
func (v DentryView) Clear() {
	v.b[deName] = 0
}
