// Package image acquires an image file and maps it into memory, returning a
// mutable byte region of exactly the file's size. This is the Image Mapper
// collaborator from spec.md §1/§2 item 1: interface only, no layout
// knowledge lives here.
package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/flatfs/flatfs/internal/layout"
)

// Region is a memory-mapped image file. The Bytes() slice aliases the file's
// contents directly: writes through it are writes to the file, visible to
// any later stat/read of the same file once the OS flushes its page cache
// (spec.md §5: no fsync/msync is required by this file system).
type Region struct {
	file  *os.File
	bytes []byte
}

// Map opens path read-write and maps its entire contents. It fails if the
// file's size is not a positive multiple of layout.BlockSize, per spec.md
// §2 item 1.
func Map(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: stat %s: %w", path, err)
	}

	size := info.Size()
	if size <= 0 || size%layout.BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("image: size %d is not a positive multiple of %d bytes", size, layout.BlockSize)
	}

	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: mmap %s: %w", path, err)
	}

	return &Region{file: f, bytes: b}, nil
}

// Bytes returns the mapped region.
func (r *Region) Bytes() []byte { return r.bytes }

// Close unmaps the region and closes the underlying file.
func (r *Region) Close() error {
	var mErr, cErr error
	if r.bytes != nil {
		mErr = unix.Munmap(r.bytes)
		r.bytes = nil
	}
	cErr = r.file.Close()
	if mErr != nil {
		return mErr
	}
	return cErr
}
