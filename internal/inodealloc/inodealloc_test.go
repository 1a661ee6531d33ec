package inodealloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flatfs/flatfs/internal/inodealloc"
	"github.com/flatfs/flatfs/internal/layout"
)

func newTestLayout(t *testing.T, inodeCount uint32) *layout.Layout {
	t.Helper()
	const totalDataBlocks = 8
	bi := uint32((uint64(inodeCount)*layout.InodeSize + layout.BlockSize - 1) / layout.BlockSize)
	bd := uint32(1)
	imageSize := uint64(2+bd+bi+totalDataBlocks) * layout.BlockSize

	region := make([]byte, imageSize)
	l := layout.BindUnchecked(region)
	sb := l.Superblock()
	sb.SetMagic(layout.SuperblockMagic)
	sb.SetImageSize(imageSize)
	sb.SetTotalInodes(inodeCount)
	sb.SetFreeInodes(inodeCount)
	sb.SetTotalDataBlocks(totalDataBlocks)
	sb.SetFreeDataBlocks(totalDataBlocks)
	sb.SetBitmapStart(2)
	sb.SetInodeTableStart(2 + bd)
	sb.SetDataStart(2 + bd + bi)

	bound, err := layout.Bind(region)
	require.NoError(t, err)
	return bound
}

func TestAllocFindsFirstFreeInode(t *testing.T) {
	l := newTestLayout(t, 4)
	a := inodealloc.New(l)

	idx, err := a.Alloc(layout.ModeReg|0644, 1000, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)
	require.EqualValues(t, 1, l.Inode(0).Nlink())
	require.EqualValues(t, 3, l.Superblock().FreeInodes())

	idx2, err := a.Alloc(layout.ModeDir|0755, 1000, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, idx2)
	require.True(t, l.Inode(1).IsDir())
}

func TestAllocExhaustion(t *testing.T) {
	l := newTestLayout(t, 2)
	a := inodealloc.New(l)

	_, err := a.Alloc(layout.ModeReg, 0, 0)
	require.NoError(t, err)
	_, err = a.Alloc(layout.ModeReg, 0, 0)
	require.NoError(t, err)
	_, err = a.Alloc(layout.ModeReg, 0, 0)
	require.ErrorIs(t, err, inodealloc.ErrNoSpace)
}

func TestFreeReclaimsSlot(t *testing.T) {
	l := newTestLayout(t, 2)
	a := inodealloc.New(l)

	idx, err := a.Alloc(layout.ModeReg, 0, 0)
	require.NoError(t, err)
	l.Inode(idx).SetNlink(0)
	a.Free(idx)

	require.EqualValues(t, 2, l.Superblock().FreeInodes())
	require.True(t, l.Inode(idx).Free())

	idx2, ok := a.FindFree()
	require.True(t, ok)
	require.EqualValues(t, 0, idx2)
}
