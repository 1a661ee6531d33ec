package fsops_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flatfs/flatfs/clock"
	"github.com/flatfs/flatfs/internal/fsops"
	"github.com/flatfs/flatfs/internal/layout"
)

func newImage(t *testing.T, imageSize uint64, inodeCount uint32) *layout.Layout {
	t.Helper()
	g, err := layout.ComputeGeometry(imageSize, inodeCount)
	require.NoError(t, err)

	region := make([]byte, imageSize)
	l := layout.BindUnchecked(region)
	sb := l.Superblock()
	sb.SetMagic(layout.SuperblockMagic)
	sb.SetImageSize(imageSize)
	sb.SetTotalInodes(inodeCount)
	sb.SetFreeInodes(inodeCount)
	sb.SetTotalDataBlocks(g.DataBlocks)
	sb.SetFreeDataBlocks(g.DataBlocks)
	sb.SetBitmapStart(2)
	sb.SetInodeTableStart(2 + g.BitmapBlocks)
	sb.SetDataStart(2 + g.BitmapBlocks + g.InodeTableBlocks)

	root := l.Inode(0)
	root.SetMode(layout.ModeDir | 0777)
	root.SetNlink(2)
	sb.DecFreeInodes()

	bound, err := layout.Bind(region)
	require.NoError(t, err)
	return bound
}

func newDispatcher(t *testing.T, imageSize uint64, inodeCount uint32) *fsops.Dispatcher {
	t.Helper()
	l := newImage(t, imageSize, inodeCount)
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	return fsops.NewDispatcher(l, clk)
}

func TestFormatAndStat(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	st := d.Statfs()
	require.EqualValues(t, 4096, st.Bsize)
	require.EqualValues(t, 256, st.Blocks)
	require.EqualValues(t, 32, st.Files)
	require.EqualValues(t, 31, st.Ffree)
	require.EqualValues(t, 251, st.NameMax)
}

func TestMkdirAndReaddir(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)

	require.NoError(t, d.Mkdir("/a", 0755))

	var names []string
	require.NoError(t, d.Readdir("/", func(name string) bool {
		names = append(names, name)
		return true
	}))
	require.ElementsMatch(t, []string{".", "..", "a"}, names)

	attr, err := d.Getattr("/a")
	require.NoError(t, err)
	require.EqualValues(t, layout.ModeDir, attr.Mode&layout.ModeTypeMask)
	require.EqualValues(t, 2, attr.Nlink)
	require.EqualValues(t, 0, attr.Size)
}

func TestCreateWriteRead(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/f", layout.ModeReg|0644))

	n, err := d.WritePath("/f", []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = d.ReadPath("/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	attr, err := d.Getattr("/f")
	require.NoError(t, err)
	require.EqualValues(t, 5, attr.Size)
	require.EqualValues(t, 1, attr.Nlink)
}

func TestHoleWrite(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/h", layout.ModeReg|0644))

	n, err := d.WritePath("/h", []byte("X"), 8192)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	attr, err := d.Getattr("/h")
	require.NoError(t, err)
	require.EqualValues(t, 8193, attr.Size)

	buf := make([]byte, 1)
	_, err = d.ReadPath("/h", buf, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, buf[0])

	_, err = d.ReadPath("/h", buf, 8192)
	require.NoError(t, err)
	require.Equal(t, byte('X'), buf[0])
}

func TestTruncateShrinkReclaimsBlocks(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/g", layout.ModeReg|0644))

	zeros := make([]byte, 12288)
	freeBefore := d.Layout.Superblock().FreeDataBlocks()
	_, err := d.WritePath("/g", zeros, 0)
	require.NoError(t, err)
	require.EqualValues(t, freeBefore-3, d.Layout.Superblock().FreeDataBlocks())

	require.NoError(t, d.TruncatePath("/g", 100))
	// 100 bytes still needs its one covering block; only the other two are
	// freed.
	require.EqualValues(t, freeBefore-1, d.Layout.Superblock().FreeDataBlocks())

	attr, err := d.Getattr("/g")
	require.NoError(t, err)
	require.EqualValues(t, 100, attr.Size)
}

func TestRmdirNonEmptyRejects(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Mkdir("/d", 0755))
	require.NoError(t, d.Create("/d/x", layout.ModeReg|0644))

	err := d.Rmdir("/d")
	require.ErrorIs(t, err, fsops.ErrNotEmpty)

	require.NoError(t, d.Unlink("/d/x"))

	freeInodesBefore := d.Layout.Superblock().FreeInodes()
	require.NoError(t, d.Rmdir("/d"))
	require.EqualValues(t, freeInodesBefore+1, d.Layout.Superblock().FreeInodes())
}

func TestRenameSimple(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/a", layout.ModeReg|0644))

	require.NoError(t, d.Rename("/a", "/b"))

	_, err := d.Getattr("/a")
	require.ErrorIs(t, err, fsops.ErrNotFound)

	attr, err := d.Getattr("/b")
	require.NoError(t, err)
	require.EqualValues(t, 1, attr.Nlink)
}

func TestRenameOverwritesEmptyTargetFile(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/a", layout.ModeReg|0644))
	require.NoError(t, d.Create("/b", layout.ModeReg|0644))
	_, err := d.WritePath("/a", []byte("src"), 0)
	require.NoError(t, err)

	require.NoError(t, d.Rename("/a", "/b"))

	buf := make([]byte, 3)
	_, err = d.ReadPath("/b", buf, 0)
	require.NoError(t, err)
	require.Equal(t, "src", string(buf))
}

func TestRenameDirectoryAcrossParentsUpdatesLinkCounts(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Mkdir("/a", 0755))
	require.NoError(t, d.Mkdir("/b", 0755))
	require.NoError(t, d.Mkdir("/a/sub", 0755))

	aBefore, err := d.Getattr("/a")
	require.NoError(t, err)
	require.EqualValues(t, 3, aBefore.Nlink)
	bBefore, err := d.Getattr("/b")
	require.NoError(t, err)
	require.EqualValues(t, 2, bBefore.Nlink)

	require.NoError(t, d.Rename("/a/sub", "/b/sub"))

	aAfter, err := d.Getattr("/a")
	require.NoError(t, err)
	require.EqualValues(t, 2, aAfter.Nlink)
	bAfter, err := d.Getattr("/b")
	require.NoError(t, err)
	require.EqualValues(t, 3, bAfter.Nlink)

	_, err = d.Getattr("/a/sub")
	require.ErrorIs(t, err, fsops.ErrNotFound)
	subAttr, err := d.Getattr("/b/sub")
	require.NoError(t, err)
	require.EqualValues(t, 2, subAttr.Nlink)
}

func TestRenameWithinSameParentLeavesLinkCountsUnchanged(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Mkdir("/a", 0755))
	require.NoError(t, d.Mkdir("/a/sub", 0755))

	before, err := d.Getattr("/a")
	require.NoError(t, err)

	require.NoError(t, d.Rename("/a/sub", "/a/renamed"))

	after, err := d.Getattr("/a")
	require.NoError(t, err)
	require.Equal(t, before.Nlink, after.Nlink)
}

func TestGrownDirectoryBlockReusedFromFreedFileIsZeroed(t *testing.T) {
	d := newDispatcher(t, 1<<20, 64)

	// Allocate a block full of non-zero bytes, then free it: grow_inode
	// never clears a block's data, so the next inode to claim this block
	// (via FindFreeRun's first-fit) would inherit these bytes verbatim if
	// nothing zeroed it first.
	require.NoError(t, d.Create("/junk", layout.ModeReg|0644))
	junk := make([]byte, layout.BlockSize)
	for i := range junk {
		junk[i] = 0xFF
	}
	_, err := d.WritePath("/junk", junk, 0)
	require.NoError(t, err)
	require.NoError(t, d.Unlink("/junk"))

	require.NoError(t, d.Mkdir("/d", 0755))
	require.NoError(t, d.Create("/d/f", layout.ModeReg|0644))

	var names []string
	require.NoError(t, d.Readdir("/d", func(name string) bool {
		names = append(names, name)
		return true
	}))
	require.ElementsMatch(t, []string{".", "..", "f"}, names)
}

func TestRenameDirectoryIntoOwnDescendantRejected(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Mkdir("/a", 0755))
	require.NoError(t, d.Mkdir("/a/b", 0755))

	err := d.Rename("/a", "/a/b/a")
	require.ErrorIs(t, err, fsops.ErrInvalid)
}

func TestUtimensSetsExplicitTime(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/f", layout.ModeReg|0644))

	err := d.Utimens("/f", &[2]fsops.Timespec{{}, {Sec: 42, Nsec: 7}})
	require.NoError(t, err)

	attr, err := d.Getattr("/f")
	require.NoError(t, err)
	require.EqualValues(t, 42, attr.MtimeSec)
	require.EqualValues(t, 7, attr.MtimeNsec)
}

func TestUtimensOmitLeavesTimeUnchanged(t *testing.T) {
	d := newDispatcher(t, 1<<20, 32)
	require.NoError(t, d.Create("/f", layout.ModeReg|0644))
	before, err := d.Getattr("/f")
	require.NoError(t, err)

	err = d.Utimens("/f", &[2]fsops.Timespec{{}, {Nsec: fsops.UtimeOmit}})
	require.NoError(t, err)

	after, err := d.Getattr("/f")
	require.NoError(t, err)
	require.Equal(t, before.MtimeSec, after.MtimeSec)
}
