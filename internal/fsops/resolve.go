// Package fsops implements the Path Resolver, Directory Ops, File I/O Core,
// and Operation Dispatcher from spec.md §4.4–§4.7, plus the rename
// supplement from SPEC_FULL.md. It is bridge-agnostic: every exported error
// here is a plain Go sentinel, and Dispatcher's methods return them as is;
// internal/bridge translates them into negated errno values.
package fsops

import (
	"strings"

	"github.com/flatfs/flatfs/internal/blockiter"
	"github.com/flatfs/flatfs/internal/layout"
)

// splitPath splits an absolute path into its non-empty components, so that
// "/", "/a/", and "//a" all resolve the same way (spec.md §4.4).
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve walks path from the root inode and returns the inode number it
// names, per spec.md §4.4.
func Resolve(l *layout.Layout, path string) (uint32, error) {
	if len(path) > layout.PathMax-1 {
		return 0, ErrNameTooLong
	}

	cur := uint32(layout.RootInode)
	for _, comp := range splitPath(path) {
		if len(comp) > layout.NameMax-1 {
			return 0, ErrNameTooLong
		}
		in := l.Inode(cur)
		if !in.IsDir() {
			return 0, ErrNotDir
		}
		next, ok := findEntry(l, in, comp)
		if !ok {
			return 0, ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

// splitParentLeaf splits a path into its parent directory path and leaf
// component name, per spec.md §4.5 step 1.
func splitParentLeaf(path string) (parent string, leaf string) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return "/", ""
	}
	leaf = comps[len(comps)-1]
	parent = "/" + strings.Join(comps[:len(comps)-1], "/")
	return parent, leaf
}

// findEntry scans every block of directory inode dir for an occupied entry
// named name, returning its inode number.
func findEntry(l *layout.Layout, dir layout.InodeView, name string) (uint32, bool) {
	ok := false
	var found uint32
	forEachDentry(l, dir, func(d layout.DentryView) bool {
		if d.Occupied() && d.Name() == name {
			found = d.InodeNum()
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// forEachDentry invokes fn with every directory-entry slot (occupied or
// not) across dir's allocated data blocks, in block then slot order,
// stopping early if fn returns false. dir's size is always a whole number
// of blocks (spec.md I5); the number of blocks it occupies is
// size/BlockSize.
func forEachDentry(l *layout.Layout, dir layout.InodeView, fn func(layout.DentryView) bool) {
	numBlocks := dir.Size() / layout.BlockSize
	for logical := uint64(0); logical < numBlocks; logical++ {
		block, ok := blockiter.BlockAt(l, dir, uint32(logical))
		if !ok {
			return
		}
		for slot := 0; slot < layout.DentriesPerBlock; slot++ {
			if !fn(l.Dentry(block, slot)) {
				return
			}
		}
	}
}
