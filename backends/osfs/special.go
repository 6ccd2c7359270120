package osfs

import (
	"os"

	"github.com/mackron/gofs/internal/backend"
)

// specialHandle names one of the process standard streams resolved from
// the :stdi:/:stdo:/:stde: literal paths (spec §6 "Special filesystem
// paths"). Checked as a path-equality fast path before any host stat
// call, per SPEC_FULL.md §6.
type specialHandle int

const (
	stdin specialHandle = iota
	stdout
	stderr
)

func specialStream(path string) (specialHandle, bool) {
	switch path {
	case ":stdi:":
		return stdin, true
	case ":stdo:":
		return stdout, true
	case ":stde:":
		return stderr, true
	}
	return 0, false
}

// staterr is what Info reports for a special path: these streams have no
// meaningful size or mtime, so stat is simply not supported.
func (s specialHandle) staterr() error { return backend.ErrNotImplemented }

func (s specialHandle) open(flags backend.Flags) (backend.File, error) {
	switch s {
	case stdin:
		return &streamFile{r: os.Stdin}, nil
	case stdout:
		return &streamFile{w: os.Stdout}, nil
	case stderr:
		return &streamFile{w: os.Stderr}, nil
	}
	return nil, backend.ErrInvalidArgs
}

// streamFile wraps one of the process's standard streams: no seeking, no
// duplication, matching a pipe's semantics.
type streamFile struct {
	r *os.File
	w *os.File
}

func (s *streamFile) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, backend.ErrInvalidOperation
	}
	return s.r.Read(p)
}

func (s *streamFile) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, backend.ErrInvalidOperation
	}
	return s.w.Write(p)
}

func (s *streamFile) Close() error { return nil }

func (s *streamFile) Seek(offset int64, whence int) (int64, error) {
	return 0, backend.ErrBadSeek
}

func (s *streamFile) Tell() (int64, error) { return 0, backend.ErrBadSeek }

func (s *streamFile) Flush() error {
	if s.w != nil {
		return s.w.Sync()
	}
	return nil
}

func (s *streamFile) Info() (backend.FileInfo, error) {
	return backend.FileInfo{}, backend.ErrNotImplemented
}

func (s *streamFile) Duplicate() (backend.File, error) {
	return nil, backend.ErrInvalidOperation
}
