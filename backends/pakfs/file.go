package pakfs

import (
	"io"

	"github.com/mackron/gofs/internal/backend"
)

type file struct {
	sr   *io.SectionReader
	size int64
}

func (f *file) Read(p []byte) (int, error) { return f.sr.Read(p) }

func (f *file) Write(p []byte) (int, error) { return 0, backend.ErrInvalidOperation }

func (f *file) Close() error { return nil }

func (f *file) Seek(offset int64, whence int) (int64, error) {
	n, err := f.sr.Seek(offset, whence)
	if err != nil {
		return 0, backend.ErrBadSeek
	}
	return n, nil
}

func (f *file) Tell() (int64, error) {
	return f.sr.Seek(0, io.SeekCurrent)
}

func (f *file) Flush() error { return nil }

func (f *file) Info() (backend.FileInfo, error) {
	return backend.FileInfo{Size: f.size}, nil
}

// Duplicate clones the read cursor onto an independent SectionReader
// over the same underlying bytes, the cheap clone spec §4.8 describes
// for in-archive read cursors.
func (f *file) Duplicate() (backend.File, error) {
	pos, err := f.sr.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, backend.ErrBadSeek
	}
	dup := io.NewSectionReader(f.sr, 0, f.size)
	if _, err := dup.Seek(pos, io.SeekStart); err != nil {
		return nil, backend.ErrBadSeek
	}
	return &file{sr: dup, size: f.size}, nil
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
