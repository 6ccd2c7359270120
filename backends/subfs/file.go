package subfs

import (
	"context"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/vfs"
)

type file struct {
	fs *vfs.FS
	h  *backend.Handle
}

func (f *file) Read(p []byte) (int, error) { return f.h.File.Read(p) }

func (f *file) Write(p []byte) (int, error) { return f.h.File.Write(p) }

// Close releases the underlying handle through the target filesystem so
// its archive reference chain (if the reprojected path descended into an
// archive in Target) unwinds the normal way, not just the raw file.
func (f *file) Close() error { return f.fs.CloseHandle(f.h) }

func (f *file) Seek(offset int64, whence int) (int64, error) { return f.h.File.Seek(offset, whence) }

func (f *file) Tell() (int64, error) { return f.h.File.Tell() }

func (f *file) Flush() error { return f.h.File.Flush() }

func (f *file) Info() (backend.FileInfo, error) { return f.h.File.Info() }

func (f *file) Duplicate() (backend.File, error) { return f.h.File.Duplicate() }

// iterator wraps a target filesystem's IteratorHandle as a plain
// backend.Iterator, holding the ctx its Next calls were opened with
// since backend.Iterator.Next takes none of its own.
type iterator struct {
	ctx context.Context
	fs  *vfs.FS
	h   *backend.IteratorHandle
}

func (it *iterator) Next() (backend.Entry, bool, error) { return it.h.Next(it.ctx) }

func (it *iterator) Close() error { return it.fs.CloseIterator(it.h) }
