// Package archivetype implements the per-filesystem-instance extension →
// backend mapping the resolver consults when deciding whether a path
// segment is an archive-descent point (spec §3 "Archive type", §4.4).
//
// Grounded on backend/archive/archiver.Archiver in the teacher: a flat,
// ordered, append-only registry — here scoped per vfs.FS instance rather
// than process-global, matching spec §9's "Global state" note ("the
// archive type registry is per-filesystem-instance").
package archivetype

import (
	"strings"

	"github.com/mackron/gofs/internal/backend"
)

// Type pairs a file extension with a constructor for the backend kind
// that opens archives of that extension (spec §3 "Archive type": "a pair
// (extension, backend pointer)"). New must return a fresh, uninitialized
// Backend value each call — one archive cache entry owns one instance,
// since Init stores per-archive state on it — matching the teacher's
// Archiver{New func(...) fs.Fs, Extension string} rather than a single
// shared backend value.
type Type struct {
	// Extension is matched case-insensitively against the trailing
	// dot-separated component of a path segment, without the leading dot
	// (e.g. "zip", not ".zip").
	Extension string
	New       func() backend.Backend
}

// Registry is an ordered list of archive Types. Order is the tie-breaker
// when two extensions could both match a segment: first registered wins
// (spec §4.4).
type Registry struct {
	types []Type
}

// NewRegistry builds a Registry from an ordered list of Types.
func NewRegistry(types ...Type) *Registry {
	r := &Registry{}
	r.types = append(r.types, types...)
	return r
}

// Register appends a Type to the end of the registry (lowest
// precedence among existing entries for a segment that would match more
// than one).
func (r *Registry) Register(t Type) {
	r.types = append(r.types, t)
}

// Match returns the Type whose extension is a case-insensitive suffix of
// segment (the trailing dot-separated component), and true, or a
// zero-value Type and false if no registered extension matches.
func (r *Registry) Match(segment string) (Type, bool) {
	lower := strings.ToLower(segment)
	for _, t := range r.types {
		ext := "." + strings.ToLower(t.Extension)
		if strings.HasSuffix(lower, ext) && len(lower) > len(ext) {
			return t, true
		}
	}
	return Type{}, false
}

// Candidates returns, for a segment that does not itself match a
// registered extension, the list of "segment.ext" names the transparent
// walker should speculatively try to open as an archive (spec §4.7
// "Transparent" mode), in registration order.
func (r *Registry) Candidates(segment string) []string {
	out := make([]string, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, segment+"."+t.Extension)
	}
	return out
}

// Types returns a snapshot of the registered types in precedence order.
func (r *Registry) Types() []Type {
	out := make([]Type, len(r.types))
	copy(out, r.types)
	return out
}
