package zipfs

import (
	"bytes"
	"io"

	"github.com/mackron/gofs/internal/backend"
)

type file struct {
	r    *bytes.Reader
	size int64
}

func (f *file) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *file) Write(p []byte) (int, error) { return 0, backend.ErrInvalidOperation }

func (f *file) Close() error { return nil }

func (f *file) Seek(offset int64, whence int) (int64, error) {
	n, err := f.r.Seek(offset, whence)
	if err != nil {
		return 0, backend.ErrBadSeek
	}
	return n, nil
}

func (f *file) Tell() (int64, error) {
	return f.r.Seek(0, io.SeekCurrent)
}

func (f *file) Flush() error { return nil }

func (f *file) Info() (backend.FileInfo, error) {
	return backend.FileInfo{Size: f.size}, nil
}

// Duplicate clones the cursor onto a new reader over the same
// already-inflated bytes. The ZIP format's compression means a "cheap"
// duplicate is whatever the decompressed buffer costs once, not a
// second inflate per spec §4.8's cursor-sharing intent.
func (f *file) Duplicate() (backend.File, error) {
	pos, err := f.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, backend.ErrBadSeek
	}
	clone := *f.r
	dup := &clone
	if _, err := dup.Seek(pos, io.SeekStart); err != nil {
		return nil, backend.ErrBadSeek
	}
	return &file{r: dup, size: f.size}, nil
}

type iterator struct {
	entries []backend.Entry
	idx     int
}

func (it *iterator) Next() (backend.Entry, bool, error) {
	if it.idx >= len(it.entries) {
		return backend.Entry{}, false, nil
	}
	e := it.entries[it.idx]
	it.idx++
	return e, true, nil
}

func (it *iterator) Close() error { return nil }
