// Package stream defines the sequential byte source/sink primitive the
// archive cache feeds to stream-backed backends (spec §3, §4.3). The
// resolver implements one itself (vfs's adapter over the parent
// archive's open file); other concrete streams (a bytes.Reader, a
// SectionReader into a parent archive, wrapped in ReadSeekerStream) are
// supplied by the caller.
package stream

import "io"

// Stream is a sequential byte source/sink that must tolerate backward
// seeks (spec §4.3). It is the minimal surface archive backends need to
// read their own directory and, later, to read individual file bodies.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker

	// Tell returns the current offset; equivalent to Seek(0, io.SeekCurrent)
	// but named explicitly because the source's contract names it
	// separately from seek (spec §4.3).
	Tell() (int64, error)

	Flush() error
}

// Duplicable is implemented by streams that can hand out an independent
// read cursor over the same underlying bytes. Nothing in this module
// checks for it: the resolver gives each nested archive its own file
// opened on the parent backend instead.
type Duplicable interface {
	Duplicate() (Stream, error)
}

// ReadSeekerStream adapts an io.ReadSeeker (e.g. *os.File, a
// *io.SectionReader into a parent archive) into a read-only Stream.
// Write always fails with a read-only error; Flush is a no-op returning
// nil.
type ReadSeekerStream struct {
	io.ReadSeeker
}

func (s ReadSeekerStream) Write(p []byte) (int, error) {
	return 0, errReadOnly
}

func (s ReadSeekerStream) Flush() error { return nil }

func (s ReadSeekerStream) Tell() (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

var errReadOnly = readOnlyError{}

type readOnlyError struct{}

func (readOnlyError) Error() string { return "stream: read-only stream does not support Write" }
