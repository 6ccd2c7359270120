// Package pakfs implements the bit-exact PAK archive backend from
// spec.md §6: magic "PACK", a u32 TOC offset and size, and a flat array
// of 64-byte TOC entries (56-byte null-padded name, u32 offset, u32
// size). Directories are never stored — they are derived by splitting
// names on "/" at iteration time, matching fs_pak.c's flat, TOC-driven,
// uncompressed design in original_source/.
package pakfs

import (
	"context"
	"encoding/binary"
	"io"
	"sort"
	"strings"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
)

const (
	magic         = "PACK"
	tocEntrySize  = 64
	tocNameBytes  = 56
	headerBytes   = 4 + 4 + 4 // magic + toc offset + toc size
)

type tocEntry struct {
	name   string
	offset uint32
	size   uint32
}

// Backend is a stream-backed, read-only archive backend over the PAK
// format.
type Backend struct {
	stream  stream.Stream
	entries map[string]tocEntry
	dirs    map[string]bool
}

// New returns an uninitialized pakfs backend; matches
// archivetype.Type.New's constructor shape.
func New() backend.Backend { return &Backend{} }

func (b *Backend) Kind() string { return "pak" }

// Init reads the archive's header and TOC from stream (spec §6 "PAK
// format"). cfg is unused; a stream-backed archive backend's only
// configuration is the bytes it is handed.
func (b *Backend) Init(ctx context.Context, cfg backend.Config, src stream.Stream) error {
	if src == nil {
		return backend.ErrInvalidArgs
	}
	hdr := make([]byte, headerBytes)
	if _, err := io.ReadFull(src, hdr); err != nil {
		return backend.ErrInvalidFile
	}
	if string(hdr[:4]) != magic {
		return backend.ErrInvalidFile
	}
	tocOffset := binary.LittleEndian.Uint32(hdr[4:8])
	tocSize := binary.LittleEndian.Uint32(hdr[8:12])
	if tocSize%tocEntrySize != 0 {
		return backend.ErrInvalidFile
	}
	fileCount := tocSize / tocEntrySize

	if _, err := src.Seek(int64(tocOffset), io.SeekStart); err != nil {
		return backend.ErrInvalidFile
	}
	toc := make([]byte, tocSize)
	if _, err := io.ReadFull(src, toc); err != nil {
		return backend.ErrInvalidFile
	}

	entries := make(map[string]tocEntry, fileCount)
	dirs := map[string]bool{"": true}
	for i := uint32(0); i < fileCount; i++ {
		rec := toc[i*tocEntrySize : (i+1)*tocEntrySize]
		nameBytes := rec[:tocNameBytes]
		name := string(nameBytes[:indexNull(nameBytes)])
		offset := binary.LittleEndian.Uint32(rec[tocNameBytes : tocNameBytes+4])
		size := binary.LittleEndian.Uint32(rec[tocNameBytes+4 : tocNameBytes+8])
		entries[name] = tocEntry{name: name, offset: offset, size: size}

		parts := strings.Split(name, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}

	b.stream = src
	b.entries = entries
	b.dirs = dirs
	return nil
}

func indexNull(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}

func (b *Backend) Uninit(ctx context.Context) error {
	if c, ok := b.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, path string, flags backend.Flags) (backend.FileInfo, error) {
	if path == "" || b.dirs[path] {
		return backend.FileInfo{IsDirectory: true}, nil
	}
	e, ok := b.entries[path]
	if !ok {
		return backend.FileInfo{}, backend.ErrDoesNotExist
	}
	return backend.FileInfo{Size: int64(e.size)}, nil
}

// Open returns a read-only view of the named file's bytes. An exact
// directory name is an error, per spec §6: "an iteration query that
// names an exact file is an error" — symmetrically, Open on a directory
// name here fails rather than returning listing data.
func (b *Backend) Open(ctx context.Context, path string, flags backend.Flags) (backend.File, error) {
	if flags.Has(backend.Write) {
		return nil, backend.ErrNotImplemented
	}
	e, ok := b.entries[path]
	if !ok {
		if b.dirs[path] {
			return nil, backend.ErrInvalidOperation
		}
		return nil, backend.ErrDoesNotExist
	}
	sr := io.NewSectionReader(readerAt{b.stream}, int64(e.offset), int64(e.size))
	return &file{sr: sr, size: int64(e.size)}, nil
}

func (b *Backend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	if dir != "" && !b.dirs[dir] {
		return nil, backend.ErrDoesNotExist
	}
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]backend.Entry{}
	for name, e := range b.entries {
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
		seen[rest] = backend.Entry{Name: rest, Info: backend.FileInfo{Size: int64(e.size)}}
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

// readerAt adapts an io.ReadSeeker (which archive streams need not
// otherwise support) to io.ReaderAt for io.SectionReader by a seek
// followed by a read. It holds no lock and does not serialize concurrent
// ReadAt calls on the same stream; it relies on the
// single-threaded-per-instance contract (spec §5).
type readerAt struct {
	s io.ReadSeeker
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r.s, p)
}
