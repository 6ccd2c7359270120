package vfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sort"
	"strings"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
)

// memBackend is a tiny in-memory backend used only by this package's
// tests, standing in for a real native/archive backend the way the
// teacher's test suites build fake remotes (fstest.NewRun and friends)
// rather than hitting real storage. It doubles as both a "native" root
// backend (Init with cfg map[string][]byte) and an "archive" backend
// (Init with a stream produced by memArchiveBytes), since the resolver
// never cares which concrete kind it is talking to.
type memBackend struct {
	kind  string
	files map[string][]byte
	dirs  map[string]bool
}

func newMemBackend(kind string) *memBackend {
	return &memBackend{kind: kind, files: map[string][]byte{}, dirs: map[string]bool{"": true}}
}

func (m *memBackend) Kind() string { return m.kind }

func (m *memBackend) Init(ctx context.Context, cfg backend.Config, src stream.Stream) error {
	if src != nil {
		data, err := io.ReadAll(src)
		if err != nil {
			return backend.ErrInvalidFile
		}
		files, err := decodeMemArchive(data)
		if err != nil {
			return backend.ErrInvalidFile
		}
		m.files = files
	} else if seed, ok := cfg.(map[string][]byte); ok {
		for k, v := range seed {
			m.files[k] = v
		}
	}
	for name := range m.files {
		m.ensureParentDirs(name)
	}
	return nil
}

func (m *memBackend) ensureParentDirs(name string) {
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		m.dirs[strings.Join(parts[:i], "/")] = true
	}
}

func (m *memBackend) Uninit(ctx context.Context) error { return nil }

func (m *memBackend) Info(ctx context.Context, path string, flags backend.Flags) (backend.FileInfo, error) {
	if path == "" || m.dirs[path] {
		return backend.FileInfo{IsDirectory: true}, nil
	}
	if data, ok := m.files[path]; ok {
		return backend.FileInfo{Size: int64(len(data))}, nil
	}
	return backend.FileInfo{}, backend.ErrDoesNotExist
}

func (m *memBackend) Open(ctx context.Context, path string, flags backend.Flags) (backend.File, error) {
	if flags.Has(backend.Write) {
		buf := &bytes.Buffer{}
		if existing, ok := m.files[path]; ok && !flags.Has(backend.Truncate) {
			buf.Write(existing)
		}
		return &memFile{m: m, path: path, buf: buf, writable: true}, nil
	}
	data, ok := m.files[path]
	if !ok {
		return nil, backend.ErrDoesNotExist
	}
	return &memFile{m: m, path: path, reader: bytes.NewReader(data)}, nil
}

func (m *memBackend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	if dir != "" && !m.dirs[dir] {
		return nil, backend.ErrDoesNotExist
	}
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]backend.Entry{}
	for name, data := range m.files {
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
		seen[rest] = backend.Entry{Name: rest, Info: backend.FileInfo{Size: int64(len(data))}}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	entries := make([]backend.Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, seen[n])
	}
	return &memIterator{entries: entries}, nil
}

func (m *memBackend) Remove(ctx context.Context, path string) error {
	if _, ok := m.files[path]; !ok {
		return backend.ErrDoesNotExist
	}
	delete(m.files, path)
	return nil
}

func (m *memBackend) Rename(ctx context.Context, oldPath, newPath string) error {
	data, ok := m.files[oldPath]
	if !ok {
		return backend.ErrDoesNotExist
	}
	delete(m.files, oldPath)
	m.files[newPath] = data
	m.ensureParentDirs(newPath)
	return nil
}

func (m *memBackend) Mkdir(ctx context.Context, path string, flags backend.Flags) error {
	m.dirs[path] = true
	m.ensureParentDirs(path + "/x")
	return nil
}

type memFile struct {
	m        *memBackend
	path     string
	reader   *bytes.Reader
	buf      *bytes.Buffer
	writable bool
	offset   int64
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.reader == nil {
		return 0, backend.ErrInvalidOperation
	}
	return f.reader.Read(p)
}

func (f *memFile) Write(p []byte) (int, error) {
	if !f.writable {
		return 0, backend.ErrInvalidOperation
	}
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	if f.writable {
		f.m.files[f.path] = f.buf.Bytes()
		f.m.ensureParentDirs(f.path)
	}
	return nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	if f.reader == nil {
		return 0, backend.ErrBadSeek
	}
	return f.reader.Seek(offset, whence)
}

func (f *memFile) Tell() (int64, error) {
	if f.reader == nil {
		return 0, backend.ErrBadSeek
	}
	return f.reader.Seek(0, io.SeekCurrent)
}

func (f *memFile) Flush() error { return nil }

func (f *memFile) Info() (backend.FileInfo, error) {
	if f.reader != nil {
		return backend.FileInfo{Size: int64(f.reader.Len())}, nil
	}
	return backend.FileInfo{Size: int64(f.buf.Len())}, nil
}

func (f *memFile) Duplicate() (backend.File, error) {
	if f.writable {
		return nil, backend.ErrInvalidOperation
	}
	data := make([]byte, f.reader.Size())
	_, _ = f.reader.ReadAt(data, 0)
	return &memFile{m: f.m, path: f.path, reader: bytes.NewReader(data)}, nil
}

type memIterator struct {
	entries []backend.Entry
	idx     int
}

func (it *memIterator) Next() (backend.Entry, bool, error) {
	if it.idx >= len(it.entries) {
		return backend.Entry{}, false, nil
	}
	e := it.entries[it.idx]
	it.idx++
	return e, true, nil
}

func (it *memIterator) Close() error { return nil }

// encodeMemArchive / decodeMemArchive is a trivial made-up serialization
// (name count, then length-prefixed name/content pairs) used only so
// these tests can construct an "archive" backend instance without
// depending on a real ZIP/PAK encoder. It plays the same role these
// tests need zipfs/pakfs to play, without pulling the real backends into
// a vfs-package test.
func encodeMemArchive(files map[string][]byte) []byte {
	var buf bytes.Buffer
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(names)))
	for _, n := range names {
		data := files[n]
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(n)))
		buf.WriteString(n)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes()
}

func decodeMemArchive(data []byte) (map[string][]byte, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		var dataLen uint32
		if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
			return nil, err
		}
		content := make([]byte, dataLen)
		if _, err := io.ReadFull(r, content); err != nil {
			return nil, err
		}
		out[string(name)] = content
	}
	return out, nil
}
