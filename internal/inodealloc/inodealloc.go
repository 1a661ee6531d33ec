// Package inodealloc implements the Inode Allocator from spec.md §4.2:
// finding a free inode slot and initializing a freshly allocated one.
package inodealloc

import (
	"errors"

	"github.com/flatfs/flatfs/internal/layout"
)

// ErrNoSpace is returned when every inode slot is in use.
var ErrNoSpace = errors.New("inodealloc: no free inode")

// Allocator hands out and reclaims inode numbers on a bound Layout.
type Allocator struct {
	l *layout.Layout
}

// New returns an Allocator bound to l.
func New(l *layout.Layout) *Allocator {
	return &Allocator{l: l}
}

// FindFree scans the inode table in ascending order for the first inode
// whose Nlink is zero, per spec.md §4.2's free-inode test: an inode is free
// exactly when nothing links to it.
func (a *Allocator) FindFree() (idx uint32, ok bool) {
	total := a.l.Superblock().TotalInodes()
	for i := uint32(0); i < total; i++ {
		if a.l.Inode(i).Free() {
			return i, true
		}
	}
	return 0, false
}

// Alloc finds a free inode, initializes it as a fresh file or directory of
// the given mode, and returns its number. The caller is responsible for
// wiring it into a directory entry; Alloc only consumes the free-inode
// counter and resets the inode record itself (spec.md §4.2's init_inode).
func (a *Allocator) Alloc(mode uint32, now int64, nowNsec int32) (uint32, error) {
	idx, ok := a.FindFree()
	if !ok {
		return 0, ErrNoSpace
	}

	in := a.l.Inode(idx)
	in.Reset()
	in.SetMode(mode)
	in.SetNlink(1)
	in.SetMtime(now, nowNsec)

	a.l.Superblock().DecFreeInodes()
	return idx, nil
}

// Free marks inode idx unused again: its Nlink must already be zero. The
// caller must have already released every data block and the indirect
// extent block it owned (internal/bitmap's ShrinkInode with a new size of
// zero does this).
func (a *Allocator) Free(idx uint32) {
	in := a.l.Inode(idx)
	in.Reset()
	a.l.Superblock().IncFreeInodes()
}
