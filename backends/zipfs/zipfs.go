// Package zipfs implements the stream-backed ZIP archive backend (spec
// §6 "ZIP format. Standard ZIP central-directory layout, read-only, not
// redefined here"), over klauspost/compress/zip rather than the
// standard library's archive/zip — the domain stack's pick, matching
// the compression library the teacher already depends on for its own
// transfers (SPEC_FULL.md §3 Domain Stack).
package zipfs

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
)

// Backend is a stream-backed, read-only archive backend over a ZIP
// central directory.
type Backend struct {
	stream stream.Stream
	r      *zip.Reader
	byName map[string]*zip.File
	dirs   map[string]bool
}

// New returns an uninitialized zipfs backend.
func New() backend.Backend { return &Backend{} }

func (b *Backend) Kind() string { return "zip" }

func (b *Backend) Init(ctx context.Context, cfg backend.Config, src stream.Stream) error {
	if src == nil {
		return backend.ErrInvalidArgs
	}
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return backend.ErrInvalidFile
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return backend.ErrInvalidFile
	}

	zr, err := zip.NewReader(asReaderAt{src}, size)
	if err != nil {
		return backend.ErrInvalidFile
	}

	byName := make(map[string]*zip.File, len(zr.File))
	dirs := map[string]bool{"": true}
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		if strings.HasSuffix(f.Name, "/") {
			dirs[name] = true
			continue
		}
		byName[name] = f
		parts := strings.Split(name, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}

	b.stream = src
	b.r = zr
	b.byName = byName
	b.dirs = dirs
	return nil
}

func (b *Backend) Uninit(ctx context.Context) error {
	if c, ok := b.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, p string, flags backend.Flags) (backend.FileInfo, error) {
	p = path.Clean(p)
	if p == "." {
		p = ""
	}
	if p == "" || b.dirs[p] {
		return backend.FileInfo{IsDirectory: true}, nil
	}
	f, ok := b.byName[p]
	if !ok {
		return backend.FileInfo{}, backend.ErrDoesNotExist
	}
	return backend.FileInfo{
		Size:             int64(f.UncompressedSize64),
		LastModifiedTime: f.Modified,
	}, nil
}

func (b *Backend) Open(ctx context.Context, p string, flags backend.Flags) (backend.File, error) {
	if flags.Has(backend.Write) {
		return nil, backend.ErrNotImplemented
	}
	p = path.Clean(p)
	if p == "." {
		p = ""
	}
	f, ok := b.byName[p]
	if !ok {
		if b.dirs[p] {
			return nil, backend.ErrInvalidOperation
		}
		return nil, backend.ErrDoesNotExist
	}
	data, err := readAll(f)
	if err != nil {
		return nil, backend.ErrInvalidFile
	}
	return &file{r: bytes.NewReader(data), size: int64(len(data))}, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *Backend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	dir = path.Clean(dir)
	if dir == "." {
		dir = ""
	}
	if dir != "" && !b.dirs[dir] {
		return nil, backend.ErrDoesNotExist
	}
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]backend.Entry{}
	for name, f := range b.byName {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			child := rest[:i]
			if _, ok := seen[child]; !ok {
				seen[child] = backend.Entry{Name: child, Info: backend.FileInfo{IsDirectory: true}}
			}
			continue
		}
		seen[rest] = backend.Entry{Name: rest, Info: backend.FileInfo{Size: int64(f.UncompressedSize64)}}
	}
	for name := range b.dirs {
		if name == dir || name == "" {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		if _, ok := seen[rest]; !ok {
			seen[rest] = backend.Entry{Name: rest, Info: backend.FileInfo{IsDirectory: true}}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]backend.Entry, 0, len(names))
	for _, n := range names {
		out = append(out, seen[n])
	}
	return &iterator{entries: out}, nil
}

func (b *Backend) Remove(ctx context.Context, path string) error             { return backend.ErrNotImplemented }
func (b *Backend) Rename(ctx context.Context, oldPath, newPath string) error { return backend.ErrNotImplemented }
func (b *Backend) Mkdir(ctx context.Context, path string, flags backend.Flags) error {
	return backend.ErrNotImplemented
}

// asReaderAt adapts an io.ReadSeeker to io.ReaderAt the way pakfs.readerAt
// does, needed because zip.NewReader wants random access to the central
// directory and we are only guaranteed a stream (spec §4.3).
type asReaderAt struct {
	s io.ReadSeeker
}

func (r asReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r.s, p)
}
