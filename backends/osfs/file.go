package osfs

import (
	"io"
	"io/fs"
	"os"

	"github.com/mackron/gofs/internal/backend"
)

type file struct {
	f        *os.File
	writable bool
}

func (fl *file) Read(p []byte) (int, error)  { return fl.f.Read(p) }
func (fl *file) Write(p []byte) (int, error) { return fl.f.Write(p) }
func (fl *file) Close() error                { return fl.f.Close() }

func (fl *file) Seek(offset int64, whence int) (int64, error) {
	n, err := fl.f.Seek(offset, whence)
	if err != nil {
		return 0, backend.ErrBadSeek
	}
	return n, nil
}

func (fl *file) Tell() (int64, error) {
	return fl.f.Seek(0, io.SeekCurrent)
}

func (fl *file) Flush() error {
	return fl.f.Sync()
}

func (fl *file) Info() (backend.FileInfo, error) {
	fi, err := fl.f.Stat()
	if err != nil {
		return backend.FileInfo{}, translateStatErr(err)
	}
	return toFileInfo(fi), nil
}

// Duplicate clones a read-only handle's cursor by reopening the same
// host path; a write-open file returns ErrInvalidOperation, matching
// spec §4.8's duplication policy.
func (fl *file) Duplicate() (backend.File, error) {
	if fl.writable {
		return nil, backend.ErrInvalidOperation
	}
	reopened, err := os.Open(fl.f.Name())
	if err != nil {
		return nil, translateStatErr(err)
	}
	pos, err := fl.f.Seek(0, io.SeekCurrent)
	if err == nil {
		_, _ = reopened.Seek(pos, io.SeekStart)
	}
	return &file{f: reopened}, nil
}

type iterator struct {
	entries []fs.DirEntry
	idx     int
}

func (it *iterator) Next() (backend.Entry, bool, error) {
	if it.idx >= len(it.entries) {
		return backend.Entry{}, false, nil
	}
	e := it.entries[it.idx]
	it.idx++
	info, err := e.Info()
	if err != nil {
		return backend.Entry{}, false, translateStatErr(err)
	}
	return backend.Entry{Name: e.Name(), Info: toFileInfo(info)}, true, nil
}

func (it *iterator) Close() error { return nil }
