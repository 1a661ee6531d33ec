package mkfs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flatfs/flatfs/internal/layout"
	"github.com/flatfs/flatfs/internal/mkfs"
)

func TestFormatProducesValidImage(t *testing.T) {
	region := make([]byte, 1<<20)
	l, err := mkfs.Format(region, mkfs.Options{InodeCount: 32})
	require.NoError(t, err)

	sb := l.Superblock()
	require.EqualValues(t, layout.SuperblockMagic, sb.Magic())
	require.EqualValues(t, 32, sb.TotalInodes())
	require.EqualValues(t, 31, sb.FreeInodes())
	require.EqualValues(t, 256, sb.DataStart()+sb.TotalDataBlocks())

	root := l.Inode(layout.RootInode)
	require.True(t, root.IsDir())
	require.EqualValues(t, 2, root.Nlink())
	require.EqualValues(t, 0, root.Size())
	require.NotEqual(t, [16]byte{}, sb.UUID())
}

func TestFormatRejectsZeroInodes(t *testing.T) {
	region := make([]byte, 1<<20)
	_, err := mkfs.Format(region, mkfs.Options{InodeCount: 0})
	require.Error(t, err)
}

func TestFormatRefusesExistingImageWithoutForce(t *testing.T) {
	region := make([]byte, 1<<20)
	_, err := mkfs.Format(region, mkfs.Options{InodeCount: 32})
	require.NoError(t, err)

	_, err = mkfs.Format(region, mkfs.Options{InodeCount: 16})
	require.ErrorIs(t, err, mkfs.ErrAlreadyFormatted)
}

func TestFormatForceOverwritesExistingImage(t *testing.T) {
	region := make([]byte, 1<<20)
	_, err := mkfs.Format(region, mkfs.Options{InodeCount: 32})
	require.NoError(t, err)

	l, err := mkfs.Format(region, mkfs.Options{InodeCount: 16, Force: true})
	require.NoError(t, err)
	require.EqualValues(t, 16, l.Superblock().TotalInodes())
}

func TestFormatZeroOptionClearsStaleData(t *testing.T) {
	region := make([]byte, 1<<20)
	for i := range region {
		region[i] = 0xAA
	}
	l, err := mkfs.Format(region, mkfs.Options{InodeCount: 32, Zero: true, Force: true})
	require.NoError(t, err)

	// Every non-root inode slot must read as free (zeroed).
	for i := uint32(1); i < l.Superblock().TotalInodes(); i++ {
		require.True(t, l.Inode(i).Free())
	}
}
