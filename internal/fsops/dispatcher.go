package fsops

import (
	"github.com/flatfs/flatfs/clock"
	"github.com/flatfs/flatfs/internal/layout"
)

// UTIME_NOW and UTIME_OMIT mirror the Linux utimensat sentinel values so
// callers can pass the bridge's own tv_nsec fields straight through without
// this package importing syscall.
const (
	UtimeNow  = int64(1<<30 - 1)
	UtimeOmit = int64(1<<30 - 2)
)

// Timespec is a POSIX-style (seconds, nanoseconds) pair.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Attr is the attribute set getattr reports, per spec.md §4.7.
type Attr struct {
	Mode   uint32
	Nlink  uint32
	Size   uint64
	Blocks uint64 // 512-byte blocks, per spec.md
	MtimeSec  int64
	MtimeNsec int32
}

// StatfsResult is what the statfs entry point reports, per spec.md §4.7.
type StatfsResult struct {
	Bsize   uint32
	Blocks  uint64
	Bfree   uint32
	Bavail  uint32
	Files   uint32
	Ffree   uint32
	NameMax uint32
}

// Dispatcher is the thin set of entry points the bridge invokes (spec.md
// §4.7), wired to one Core.
type Dispatcher struct {
	*Core
}

// NewDispatcher returns a Dispatcher over a freshly bound image and clock.
func NewDispatcher(l *layout.Layout, clk clock.Clock) *Dispatcher {
	return &Dispatcher{Core: NewCore(l, clk)}
}

func (d *Dispatcher) Statfs() StatfsResult {
	sb := d.Layout.Superblock()
	return StatfsResult{
		Bsize:   layout.BlockSize,
		Blocks:  uint64(sb.TotalDataBlocks()) + uint64(sb.DataStart()),
		Bfree:   sb.FreeDataBlocks(),
		Bavail:  sb.FreeDataBlocks(),
		Files:   sb.TotalInodes(),
		Ffree:   sb.FreeInodes(),
		NameMax: layout.NameMax - 1,
	}
}

func (d *Dispatcher) Getattr(path string) (Attr, error) {
	if len(path) > layout.PathMax-1 {
		return Attr{}, ErrNameTooLong
	}
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return Attr{}, err
	}
	in := d.Layout.Inode(idx)
	sec, nsec := in.Mtime()
	return Attr{
		Mode:      in.Mode(),
		Nlink:     in.Nlink(),
		Size:      in.Size(),
		Blocks:    in.Size() / 512,
		MtimeSec:  sec,
		MtimeNsec: nsec,
	}, nil
}

// Readdir resolves path and invokes emit for ".", "..", and every occupied
// entry the directory holds, per spec.md §4.7. If emit returns false,
// readdir stops and returns ErrEmitRejected (mapped to ENOMEM).
func (d *Dispatcher) Readdir(path string, emit func(name string) bool) error {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return err
	}
	in := d.Layout.Inode(idx)
	if !in.IsDir() {
		return ErrNotDir
	}

	if !emit(".") || !emit("..") {
		return ErrEmitRejected
	}

	rejected := false
	forEachDentry(d.Layout, in, func(dent layout.DentryView) bool {
		if !dent.Occupied() {
			return true
		}
		if !emit(dent.Name()) {
			rejected = true
			return false
		}
		return true
	})
	if rejected {
		return ErrEmitRejected
	}
	return nil
}

func (d *Dispatcher) Mkdir(path string, mode uint32) error {
	return d.AddEntry(path, mode|layout.ModeDir, 2)
}

func (d *Dispatcher) Rmdir(path string) error {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return err
	}
	in := d.Layout.Inode(idx)
	if !in.IsDir() {
		return ErrNotDir
	}
	if !d.IsEmptyDir(in) {
		return ErrNotEmpty
	}
	return d.RemoveEntry(path)
}

func (d *Dispatcher) Create(path string, mode uint32) error {
	return d.AddEntry(path, mode, 1)
}

func (d *Dispatcher) Unlink(path string) error {
	return d.RemoveEntry(path)
}

// Utimens implements spec.md §4.7's utimens.
func (d *Dispatcher) Utimens(path string, times *[2]Timespec) error {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return err
	}
	in := d.Layout.Inode(idx)

	if times == nil || times[1].Nsec == UtimeNow {
		sec, nsec := d.now()
		in.SetMtime(sec, nsec)
		return nil
	}
	if times[1].Nsec != UtimeOmit {
		in.SetMtime(times[1].Sec, int32(times[1].Nsec))
	}
	return nil
}

func (d *Dispatcher) TruncatePath(path string, size uint64) error {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return err
	}
	return d.Truncate(d.Layout.Inode(idx), size)
}

func (d *Dispatcher) ReadPath(path string, buf []byte, offset uint64) (int, error) {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return 0, err
	}
	return Read(d.Layout, d.Layout.Inode(idx), buf, offset), nil
}

func (d *Dispatcher) WritePath(path string, buf []byte, offset uint64) (int, error) {
	idx, err := Resolve(d.Layout, path)
	if err != nil {
		return 0, err
	}
	return d.Write(d.Layout.Inode(idx), buf, offset)
}
