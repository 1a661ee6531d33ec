package blockiter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flatfs/flatfs/internal/bitmap"
	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/layout"
)

func newTestLayout(t *testing.T, totalDataBlocks uint32) *layout.Layout {
	t.Helper()
	const inodeCount = 8
	bi := uint32((uint64(inodeCount)*layout.InodeSize + layout.BlockSize - 1) / layout.BlockSize)
	bd := uint32((uint64(totalDataBlocks) + 8*layout.BlockSize - 1) / (8 * layout.BlockSize))
	if bd == 0 {
		bd = 1
	}
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

func TestIteratorWalksInlineExtents(t *testing.T) {
	l := newTestLayout(t, 10)
	a := bitmap.New(l)
	in := l.Inode(0)
	in.Reset()
	in.SetNlink(1)
	require.NoError(t, a.GrowInode(in, 4*layout.BlockSize))

	var got []uint32
	blockiter.ForEach(l, in, func(b uint32) bool {
		got = append(got, b)
		return true
	})
	require.Equal(t, []uint32{0, 1, 2, 3}, got)
}

func TestIteratorWalksIndirectExtents(t *testing.T) {
	total := uint32(2 * (layout.InlineExtents + 2))
	l := newTestLayout(t, total)
	a := bitmap.New(l)
	in := l.Inode(0)
	in.Reset()
	in.SetNlink(1)

	for i := uint32(0); i < total; i += 2 {
		a.Mark(i, 1, true)
	}
	for i := 0; i < layout.InlineExtents+1; i++ {
		require.NoError(t, a.GrowInode(in, layout.BlockSize))
		in.SetSize(in.Size() + layout.BlockSize)
	}

	var got []uint32
	blockiter.ForEach(l, in, func(b uint32) bool {
		got = append(got, b)
		return true
	})
	require.Len(t, got, layout.InlineExtents+1)
	require.EqualValues(t, 1, got[0])
}

func TestBlockAt(t *testing.T) {
	l := newTestLayout(t, 10)
	a := bitmap.New(l)
	in := l.Inode(0)
	in.Reset()
	in.SetNlink(1)
	require.NoError(t, a.GrowInode(in, 4*layout.BlockSize))

	b, ok := blockiter.BlockAt(l, in, 2)
	require.True(t, ok)
	require.EqualValues(t, 2, b)

	_, ok = blockiter.BlockAt(l, in, 4)
	require.False(t, ok)
}

func TestForEachStopsEarly(t *testing.T) {
	l := newTestLayout(t, 10)
	a := bitmap.New(l)
	in := l.Inode(0)
	in.Reset()
	in.SetNlink(1)
	require.NoError(t, a.GrowInode(in, 4*layout.BlockSize))

	count := 0
	blockiter.ForEach(l, in, func(b uint32) bool {
		count++
		return count < 2
	})
	require.Equal(t, 2, count)
}
