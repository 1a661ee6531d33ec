package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeGeometry(t *testing.T) {
	g, err := ComputeGeometry(1<<20, 32) // 1 MiB image, 32 inodes
	require.NoError(t, err)
	require.EqualValues(t, 2, g.InodeTableBlocks) // 32 * 256B = 8192B = 2 blocks
	require.EqualValues(t, 1, g.BitmapBlocks)
	require.EqualValues(t, 251, g.DataBlocks)
}

func TestComputeGeometryRejectsZeroInodes(t *testing.T) {
	_, err := ComputeGeometry(1<<20, 0)
	require.Error(t, err)
}

func TestComputeGeometryRejectsUnalignedSize(t *testing.T) {
	_, err := ComputeGeometry(1<<20+1, 32)
	require.Error(t, err)
}

// buildImage lays out a minimal valid image in memory for the other tests in
// this package to bind against.
func buildImage(t *testing.T, imageSize uint64, inodeCount uint32) []byte {
	t.Helper()
	g, err := ComputeGeometry(imageSize, inodeCount)
	require.NoError(t, err)

	region := make([]byte, imageSize)
	l := BindUnchecked(region)
	sb := l.Superblock()
	sb.SetMagic(SuperblockMagic)
	sb.SetImageSize(imageSize)
	sb.SetTotalInodes(inodeCount)
	sb.SetFreeInodes(inodeCount)
	sb.SetTotalDataBlocks(g.DataBlocks)
	sb.SetFreeDataBlocks(g.DataBlocks)
	sb.SetBitmapStart(2)
	sb.SetInodeTableStart(2 + g.BitmapBlocks)
	sb.SetDataStart(2 + g.BitmapBlocks + g.InodeTableBlocks)
	return region
}

func TestBindRoundTrip(t *testing.T) {
	region := buildImage(t, 1<<20, 32)
	l, err := Bind(region)
	require.NoError(t, err)
	require.Equal(t, uint32(SuperblockMagic), l.Superblock().Magic())
}

func TestBindRejectsBadMagic(t *testing.T) {
	region := buildImage(t, 1<<20, 32)
	region[BlockSize] = 0 // corrupt magic's low byte
	_, err := Bind(region)
	require.Error(t, err)
}

func TestInodeViewRoundTrip(t *testing.T) {
	region := buildImage(t, 1<<20, 32)
	l, err := Bind(region)
	require.NoError(t, err)

	in := l.Inode(0)
	require.True(t, in.Free())
	in.SetMode(ModeDir | 0755)
	in.SetNlink(2)
	in.SetSize(4096)
	in.SetMtime(100, 200)
	require.False(t, in.Free())
	require.True(t, in.IsDir())
	require.EqualValues(t, 2, in.Nlink())
	sec, nsec := in.Mtime()
	require.EqualValues(t, 100, sec)
	require.EqualValues(t, 200, nsec)
}

func TestExtentAtInlineAndIndirect(t *testing.T) {
	region := buildImage(t, 1<<20, 32)
	l, err := Bind(region)
	require.NoError(t, err)

	in := l.Inode(1)
	in.SetIndirect(5)
	for i := 0; i < InlineExtents; i++ {
		l.SetExtentAt(in, i, Extent{Start: uint32(i), Count: 1})
	}
	l.SetExtentAt(in, InlineExtents, Extent{Start: 99, Count: 3})

	require.Equal(t, Extent{Start: 3, Count: 1}, l.ExtentAt(in, 3))
	require.Equal(t, Extent{Start: 99, Count: 3}, l.ExtentAt(in, InlineExtents))
}

func TestDentryOccupancy(t *testing.T) {
	region := buildImage(t, 1<<20, 32)
	l, err := Bind(region)
	require.NoError(t, err)

	d := l.Dentry(0, 0)
	require.False(t, d.Occupied())
	d.SetName("hello", 7)
	require.True(t, d.Occupied())
	require.Equal(t, "hello", d.Name())
	require.EqualValues(t, 7, d.InodeNum())

	d.Clear()
	require.False(t, d.Occupied())
}
