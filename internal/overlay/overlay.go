// Package overlay lays in-memory unit texts over a base filesystem so a
// program can be rebuilt from augmented sources without touching disk.
package overlay

import (
	"errors"
	"io/fs"
	pathpkg "path"
	"slices"
	"strings"
	"time"

	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
)

// ErrReadOnly is returned when a caller tries to change an overlaid file.
var ErrReadOnly = errors.New("overlay file is read-only")

// FS serves overlaid texts in preference to the base filesystem. Keys are
// normalized absolute paths.
type FS struct {
	base  vfs.FS
	files map[string]string
}

var _ vfs.FS = (*FS)(nil)

// New returns an FS that serves files on top of base. The map is copied.
func New(base vfs.FS, files map[string]string) *FS {
	o := &FS{base: base, files: make(map[string]string, len(files))}
	for p, text := range files {
		o.Set(p, text)
	}
	return o
}

// Set adds or replaces an overlaid file.
func (o *FS) Set(path, text string) {
	o.files[tspath.NormalizePath(path)] = text
}

// Paths returns the overlaid paths in sorted order.
func (o *FS) Paths() []string {
	paths := make([]string, 0, len(o.files))
	for p := range o.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (o *FS) lookup(path string) (string, bool) {
	text, ok := o.files[tspath.NormalizePath(path)]
	return text, ok
}

func (o *FS) UseCaseSensitiveFileNames() bool {
	return o.base.UseCaseSensitiveFileNames()
}

func (o *FS) FileExists(path string) bool {
	if _, ok := o.lookup(path); ok {
		return true
	}
	return o.base.FileExists(path)
}

func (o *FS) ReadFile(path string) (string, bool) {
	if text, ok := o.lookup(path); ok {
		return text, true
	}
	return o.base.ReadFile(path)
}

func dirPrefix(path string) string {
	p := tspath.NormalizePath(path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (o *FS) DirectoryExists(path string) bool {
	prefix := dirPrefix(path)
	for p := range o.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return o.base.DirectoryExists(path)
}

func (o *FS) GetAccessibleEntries(path string) vfs.Entries {
	result := o.base.GetAccessibleEntries(path)
	prefix := dirPrefix(path)

	for p := range o.files {
		rest, found := strings.CutPrefix(p, prefix)
		if !found {
			continue
		}
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			if !slices.Contains(result.Directories, dir) {
				result.Directories = append(result.Directories, dir)
			}
		} else if !slices.Contains(result.Files, rest) {
			result.Files = append(result.Files, rest)
		}
	}
	return result
}

type fileInfo struct {
	name string
	size int64
}

var (
	_ fs.FileInfo = (*fileInfo)(nil)
	_ fs.DirEntry = (*fileInfo)(nil)
)

func (fi *fileInfo) IsDir() bool                { return false }
func (fi *fileInfo) ModTime() time.Time         { return time.Time{} }
func (fi *fileInfo) Mode() fs.FileMode          { return 0o444 }
func (fi *fileInfo) Name() string               { return fi.name }
func (fi *fileInfo) Size() int64                { return fi.size }
func (fi *fileInfo) Sys() any                   { return nil }
func (fi *fileInfo) Info() (fs.FileInfo, error) { return fi, nil }
func (fi *fileInfo) Type() fs.FileMode          { return 0 }

func (o *FS) Stat(path string) vfs.FileInfo {
	if text, ok := o.lookup(path); ok {
		return &fileInfo{name: pathpkg.Base(path), size: int64(len(text))}
	}
	return o.base.Stat(path)
}

func (o *FS) WalkDir(root string, walkFn vfs.WalkDirFunc) error {
	return o.base.WalkDir(root, walkFn)
}

func (o *FS) Realpath(path string) string {
	if _, ok := o.lookup(path); ok {
		return tspath.NormalizePath(path)
	}
	return o.base.Realpath(path)
}

func (o *FS) WriteFile(path string, data string, writeByteOrderMark bool) error {
	if _, ok := o.lookup(path); ok {
		return &fs.PathError{Op: "write", Path: path, Err: ErrReadOnly}
	}
	return o.base.WriteFile(path, data, writeByteOrderMark)
}

func (o *FS) Remove(path string) error {
	if _, ok := o.lookup(path); ok {
		return &fs.PathError{Op: "remove", Path: path, Err: ErrReadOnly}
	}
	return o.base.Remove(path)
}

func (o *FS) Chtimes(path string, aTime time.Time, mTime time.Time) error {
	if _, ok := o.lookup(path); ok {
		return &fs.PathError{Op: "chtimes", Path: path, Err: ErrReadOnly}
	}
	return o.base.Chtimes(path, aTime, mTime)
}
