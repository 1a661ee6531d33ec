// Package bridge is the only internal package that imports
// github.com/hanwen/go-fuse/v2 (cmd/flatfs also imports it to set up the
// mount). It adapts the dispatcher (internal/fsops) to
// pathfs.FileSystem, the one FUSE binding in the wider example pack that
// hands a callback an absolute path string rather than an inode ID
// (see SPEC_FULL.md's DOMAIN STACK table for why the teacher's own
// inode-ID-based bridge library was not used here). Every other package in
// this module is bridge-agnostic, matching spec.md §1's requirement that
// the core be reimplementable behind any equivalent bridge.
package bridge

import (
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/nodefs"
	"github.com/hanwen/go-fuse/v2/pathfs"

	"github.com/flatfs/flatfs/internal/fsops"
	"github.com/flatfs/flatfs/internal/logger"
)

// FileSystem adapts a *fsops.Dispatcher to pathfs.FileSystem. Spec.md §5
// describes a single-threaded cooperative scheduling model with no
// internal locking; go-fuse itself may dispatch callbacks from more than
// one goroutine, so mu serializes every entry point to keep the
// *effective* scheduling the core observes single-threaded.
type FileSystem struct {
	pathfs.FileSystem // embeds default (ENOSYS) implementations for everything unused

	mu   sync.Mutex
	d    *fsops.Dispatcher
	log  *logger.Logger
}

// New returns a FileSystem wrapping dispatcher. log is stored but no entry
// point writes to it, so failures reach the caller only as the returned
// fuse.Status; it may be nil (the core itself never logs either).
func New(d *fsops.Dispatcher, log *logger.Logger) *FileSystem {
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		d:          d,
		log:        log,
	}
}

func (fs *FileSystem) String() string { return "flatfs" }

func trimLeadingSlash(name string) string {
	if name == "" {
		return "/"
	}
	return "/" + name
}

func (fs *FileSystem) GetAttr(name string, _ *fuse.Context) (*fuse.Attr, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	a, err := fs.d.Getattr(trimLeadingSlash(name))
	if err != nil {
		return nil, toStatus(err)
	}
	return &fuse.Attr{
		Mode:  a.Mode,
		Nlink: a.Nlink,
		Size:  a.Size,
		Mtime: uint64(a.MtimeSec),
		Mtimensec: uint32(a.MtimeNsec),
	}, fuse.OK
}

func (fs *FileSystem) OpenDir(name string, _ *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var entries []fuse.DirEntry
	err := fs.d.Readdir(trimLeadingSlash(name), func(n string) bool {
		entries = append(entries, fuse.DirEntry{Name: n})
		return true
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return entries, fuse.OK
}

func (fs *FileSystem) Mkdir(name string, mode uint32, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return toStatus(fs.d.Mkdir(trimLeadingSlash(name), mode))
}

func (fs *FileSystem) Rmdir(name string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return toStatus(fs.d.Rmdir(trimLeadingSlash(name)))
}

func (fs *FileSystem) Unlink(name string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return toStatus(fs.d.Unlink(trimLeadingSlash(name)))
}

func (fs *FileSystem) Rename(oldName, newName string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return toStatus(fs.d.Rename(trimLeadingSlash(oldName), trimLeadingSlash(newName)))
}

func (fs *FileSystem) Truncate(name string, size uint64, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return toStatus(fs.d.TruncatePath(trimLeadingSlash(name), size))
}

func (fs *FileSystem) Utimens(name string, atime *time.Time, mtime *time.Time, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var times *[2]fsops.Timespec
	if mtime != nil {
		times = &[2]fsops.Timespec{{}, {Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}}
	}
	return toStatus(fs.d.Utimens(trimLeadingSlash(name), times))
}

func (fs *FileSystem) Create(name string, _ uint32, mode uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := trimLeadingSlash(name)
	if err := fs.d.Create(path, mode); err != nil {
		return nil, toStatus(err)
	}
	return newFile(fs, path), fuse.OK
}

func (fs *FileSystem) Open(name string, _ uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := trimLeadingSlash(name)
	if _, err := fs.d.Getattr(path); err != nil {
		return nil, toStatus(err)
	}
	return newFile(fs, path), fuse.OK
}

func (fs *FileSystem) StatFs(name string) *fuse.StatfsOut {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st := fs.d.Statfs()
	return &fuse.StatfsOut{
		Blocks:  st.Blocks,
		Bfree:   uint64(st.Bfree),
		Bavail:  uint64(st.Bavail),
		Files:   uint64(st.Files),
		Ffree:   uint64(st.Ffree),
		Bsize:   st.Bsize,
		NameLen: st.NameMax,
	}
}

// toStatus maps a core sentinel error onto a fuse.Status, mirroring spec.md
// §6's negated-errno contract. This is the one place in the module that
// imports syscall, matching SPEC_FULL.md's note that internal/fsops itself
// stays syscall-free so it remains testable without a mounted bridge.
func toStatus(err error) fuse.Status {
	switch err {
	case nil:
		return fuse.OK
	case fsops.ErrNotFound:
		return fuse.Status(syscall.ENOENT)
	case fsops.ErrNotDir:
		return fuse.Status(syscall.ENOTDIR)
	case fsops.ErrIsDir:
		return fuse.Status(syscall.EISDIR)
	case fsops.ErrNameTooLong:
		return fuse.Status(syscall.ENAMETOOLONG)
	case fsops.ErrNoSpace:
		return fuse.Status(syscall.ENOSPC)
	case fsops.ErrNotEmpty:
		return fuse.Status(syscall.ENOTEMPTY)
	case fsops.ErrEmitRejected:
		return fuse.Status(syscall.ENOMEM)
	case fsops.ErrFault:
		return fuse.Status(syscall.EFAULT)
	case fsops.ErrInvalid:
		return fuse.Status(syscall.EINVAL)
	default:
		return fuse.Status(syscall.EIO)
	}
}
