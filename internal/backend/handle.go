package backend

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ArchiveRef is a single link in a file or iterator handle's archive
// chain: a release callback that drops exactly one reference on the
// archive cache entry the handle passed through (spec §3 "File handle ...
// a reference on the archive cache entry that houses the file"). The
// resolver supplies these; the handle only needs to run them in order on
// Close, it never inspects cache internals.
type ArchiveRef func()

// Handle is the common state every open file carries: its backend, the
// backend-private file value, the flags it was opened with, and the
// chain of archive references it must release on Close. vfs.FS.Open
// returns it directly, rather than growing a trailing co-allocated region the way
// the source does (spec §9 "Variable-length trailing data" — there is no
// semantic need for that in Go).
type Handle struct {
	ID      uuid.UUID
	Backend Backend
	File    File
	Flags   Flags
	refs    []ArchiveRef
	closed  bool
}

// NewHandle wraps an open File with a fresh correlation ID, to be stamped
// onto log lines so a single open/read/close sequence can be traced
// through internal/obslog output.
func NewHandle(be Backend, f File, flags Flags, refs []ArchiveRef) *Handle {
	return &Handle{
		ID:      uuid.New(),
		Backend: be,
		File:    f,
		Flags:   flags,
		refs:    refs,
	}
}

// Close releases the backend file and then every archive reference the
// handle holds, innermost first — the reverse of the order in which they
// were acquired during descent, so closing a handle into a nested archive cannot drop
// the outer archive's last reference while the inner one is still live.
func (h *Handle) Close() error {
	if h.closed {
		return ErrInvalidOperation
	}
	h.closed = true
	err := h.File.Close()
	for i := len(h.refs) - 1; i >= 0; i-- {
		h.refs[i]()
	}
	return err
}

// IteratorHandle is the iterator analogue of Handle: it holds one
// reference per archive in its chain until Close (or natural end) runs.
type IteratorHandle struct {
	ID       uuid.UUID
	Iterator Iterator
	refs     []ArchiveRef
	closed   bool
}

func NewIteratorHandle(it Iterator, refs []ArchiveRef) *IteratorHandle {
	return &IteratorHandle{ID: uuid.New(), Iterator: it, refs: refs}
}

// Next advances the iterator. On end-of-sequence or error it releases the
// handle's archive references exactly once, matching spec §4.9's
// "iteration advancement ... null means end; any error frees the
// iterator and returns null".
func (h *IteratorHandle) Next(ctx context.Context) (Entry, bool, error) {
	if h.closed {
		return Entry{}, false, ErrInvalidOperation
	}
	e, ok, err := h.Iterator.Next()
	if !ok || err != nil {
		h.release()
	}
	return e, ok, err
}

// Close frees the iterator early, releasing archive references if they
// have not already been released by Next reaching the end.
func (h *IteratorHandle) Close() error {
	if h.closed {
		return nil
	}
	err := h.Iterator.Close()
	h.release()
	return err
}

func (h *IteratorHandle) release() {
	if h.closed {
		return
	}
	h.closed = true
	for i := len(h.refs) - 1; i >= 0; i-- {
		h.refs[i]()
	}
}

var _ io.Closer = (*Handle)(nil)
var _ io.Closer = (*IteratorHandle)(nil)
