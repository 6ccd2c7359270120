// Package backend defines the polymorphic backend contract the resolver
// invokes through, and the error/flag vocabulary shared by every layer of
// the VFS. It is the Go realization of the source's fs_backend vtable
// (spec §3, §4.2): a capability interface rather than a table of function
// pointers, with an unimplemented operation reported as ErrNotImplemented
// instead of a null slot.
package backend

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mackron/gofs/internal/stream"
)

// Flags is the bitset passed to Open, Info, Mkdir and iteration entry
// points (spec §6 "Flags").
type Flags uint32

const (
	// Access flags.
	Read Flags = 1 << iota
	Write
	Append
	Truncate
	Exclusive
	Temp

	// Descent flags.
	Verbose     // path literally spells out archive segments
	Transparent // resolver may speculatively descend into S.ext for a missing S
	OnlyMounts  // do not fall back to direct access relative to the owning fs
	IgnoreMounts

	// Safety flags.
	NoAboveRootNavigation
)

// Has reports whether all bits in want are set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Result codes (spec §6, "complete enumeration"). Go expresses these as
// sentinel errors compared with errors.Is, rather than as a closed numeric
// enum, since every call site already receives a Go error.
var (
	ErrAtEnd            = errors.New("backend: at end")
	ErrDoesNotExist     = errors.New("backend: does not exist")
	ErrAlreadyExists    = errors.New("backend: already exists")
	ErrInvalidArgs      = errors.New("backend: invalid arguments")
	ErrInvalidOperation = errors.New("backend: invalid operation")
	ErrInvalidFile      = errors.New("backend: invalid or corrupt file")
	ErrBadSeek          = errors.New("backend: bad seek")
	ErrOutOfMemory      = errors.New("backend: out of memory")
	ErrBusy             = errors.New("backend: busy")
	ErrTimeout          = errors.New("backend: timeout")
	ErrNotImplemented   = errors.New("backend: not implemented")
	ErrGeneric          = errors.New("backend: error")
	ErrCrossMount       = errors.New("backend: rename across mounts is not supported")
)

// FileInfo mirrors spec §3 "File info".
type FileInfo struct {
	Size             int64
	LastAccessTime   time.Time
	LastModifiedTime time.Time
	IsDirectory      bool
	IsSymlink        bool
}

// Entry is one result of directory iteration: a name and its FileInfo.
type Entry struct {
	Name string
	Info FileInfo
}

// File is the per-file sub-contract (spec §3 "Backend ... file
// sub-contract"). Implementations that cannot support an operation
// return ErrNotImplemented or ErrInvalidOperation as spec'd per call.
type File interface {
	io.Reader
	io.Writer
	io.Closer

	// Seek repositions the file per io.Seeker; backends that cannot seek
	// (e.g. a stream view with no random access) return ErrBadSeek.
	Seek(offset int64, whence int) (int64, error)

	// Tell returns the current offset.
	Tell() (int64, error)

	// Flush commits buffered writes. A read-only or unbuffered backend's
	// Flush is a no-op returning nil.
	Flush() error

	// Info returns the FileInfo for the open file.
	Info() (FileInfo, error)

	// Duplicate clones the handle's read/write cursor independently of
	// the original, when the backend can do so cheaply (spec §4.8). A
	// backend that cannot (e.g. a write-open native file) returns
	// ErrInvalidOperation.
	Duplicate() (File, error)
}

// Iterator is a lazy forward cursor over directory entries (spec §3
// "Iterator handle", §9 "Iteration as a lazy sequence"). Next returns
// (entry, true, nil) for each entry; (Entry{}, false, nil) at the natural
// end; and (Entry{}, false, err) if the backend failed mid-iteration. In
// the last two cases the iterator has already freed itself and must not
// be used again.
type Iterator interface {
	Next() (Entry, bool, error)
	Close() error
}

// Backend is the capability bundle every backend kind implements (spec
// §3 "Backend", §4.2). The resolver only ever calls through this
// interface; backends never call one another directly, only through the
// owning filesystem's public operations — which is what lets a
// sub-filesystem backend reproject paths transparently (spec §4.2) and
// what lets archive backends nest inside archive backends.
//
// A Backend that does not support a given operation returns
// ErrNotImplemented; this is the Go stand-in for the source's null
// vtable slot.
type Backend interface {
	// Kind names the backend for diagnostics and for the archive type
	// registry ("zip", "pak", "native", "sub", ...).
	Kind() string

	// Init prepares the backend to serve paths. For a stream-backed
	// backend (ZIP, PAK, sub-archive) src is non-nil and is the
	// backend's only access to its bytes; for a root-backed backend
	// (native OS) src is nil and init instead validates cfg (e.g. a
	// root directory path).
	Init(ctx context.Context, cfg Config, src stream.Stream) error

	// Uninit releases any resources Init acquired. Called at most once.
	Uninit(ctx context.Context) error

	// Info stats path without opening it.
	Info(ctx context.Context, path string, flags Flags) (FileInfo, error)

	// Open opens path for the given Flags.
	Open(ctx context.Context, path string, flags Flags) (File, error)

	// OpenIterator begins iterating dir's direct children.
	OpenIterator(ctx context.Context, dir string, flags Flags) (Iterator, error)

	// Remove, Rename and Mkdir are write operations; a read-only backend
	// (ZIP, PAK) returns ErrNotImplemented for all three.
	Remove(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Mkdir(ctx context.Context, path string, flags Flags) error
}

// Config is the backend-specific configuration passed to Init. Each
// backend kind defines and type-asserts its own concrete type; the
// resolver only threads it through.
type Config interface{}
