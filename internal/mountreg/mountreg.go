// Package mountreg implements the mount registry: two ordered lists of
// read- and write-mounts and the precedence rules the resolver uses to
// turn a virtual request path into a list of candidate physical paths
// (spec §3 "Mount entry", §4.6).
//
// Grounded on backend/union's upstream list and its "later mount wins"
// overlay behavior (union.Fs.upstreams, upstream/upstream.go), simplified
// to the two-list, priority-ordered model spec.md describes rather than
// union's pluggable category policies — SPEC_FULL has no equivalent of
// union's action/create/search policy selection, only precedence order.
package mountreg

import (
	"fmt"

	"github.com/mackron/gofs/internal/pathgrammar"
)

// Mode is the direction a mount serves.
type Mode int

const (
	Read Mode = iota
	Write
)

// Entry is one mount binding (spec §3 "Mount entry").
type Entry struct {
	VirtualPrefix  string
	PhysicalTarget string
	Mode           Mode
}

// Registry holds the read- and write-mount lists. Mounting appends;
// mounts registered later have higher precedence ("overlay the latest
// mount on top", spec §4.6) — precedence order is therefore the reverse
// of registration order.
type Registry struct {
	reads  []Entry
	writes []Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Mount appends a new mount binding. virtualPrefix may be "" to match
// every path.
func (r *Registry) Mount(physical, virtualPrefix string, mode Mode) {
	e := Entry{VirtualPrefix: virtualPrefix, PhysicalTarget: physical, Mode: mode}
	switch mode {
	case Read:
		r.reads = append(r.reads, e)
	case Write:
		r.writes = append(r.writes, e)
	}
}

// Unmount removes every mount entry bound to physical in the given mode.
// It returns the number removed.
func (r *Registry) Unmount(physical string, mode Mode) int {
	switch mode {
	case Read:
		n := len(r.reads)
		r.reads = filterOut(r.reads, physical)
		return n - len(r.reads)
	case Write:
		n := len(r.writes)
		r.writes = filterOut(r.writes, physical)
		return n - len(r.writes)
	}
	return 0
}

func filterOut(entries []Entry, physical string) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.PhysicalTarget != physical {
			out = append(out, e)
		}
	}
	return out
}

// Candidate is one physical path produced for a request, together with
// the mount entry (if any) it came from — nil for the final "direct
// access" candidate spec §4.6 step 2 describes.
type Candidate struct {
	Physical string
	Mount    *Entry
}

// ReadCandidates builds the ordered candidate list for a read-style
// request path p (open, info, or iterate), per spec §4.6:
//
//  1. For every read-mount whose VirtualPrefix is a segment-prefix of p,
//     in precedence order (most recently mounted first), the candidate
//     is PhysicalTarget + (p minus VirtualPrefix).
//  2. Unless onlyMounts is set, p itself is appended as a final direct
//     candidate.
func (r *Registry) ReadCandidates(p string, onlyMounts bool) []Candidate {
	var out []Candidate
	for i := len(r.reads) - 1; i >= 0; i-- {
		e := r.reads[i]
		if tail, ok := pathgrammar.TrimPrefix(p, e.VirtualPrefix); ok {
			entry := e
			out = append(out, Candidate{Physical: pathgrammar.JoinPaths(e.PhysicalTarget, tail), Mount: &entry})
		}
	}
	if !onlyMounts {
		out = append(out, Candidate{Physical: p})
	}
	return out
}

// WriteCandidate resolves p against the write-mount list: the first
// matching write-mount wins, with no fallback to a second match (spec
// §4.6 "Resolution against write-mounts"). If no write-mount matches and
// ignoreMounts is set, p is used directly. Otherwise ok is false.
func (r *Registry) WriteCandidate(p string, ignoreMounts bool) (Candidate, bool) {
	for i := len(r.writes) - 1; i >= 0; i-- {
		e := r.writes[i]
		if tail, ok := pathgrammar.TrimPrefix(p, e.VirtualPrefix); ok {
			entry := e
			return Candidate{Physical: pathgrammar.JoinPaths(e.PhysicalTarget, tail), Mount: &entry}, true
		}
	}
	if ignoreMounts {
		return Candidate{Physical: p}, true
	}
	return Candidate{}, false
}

// IterationSources returns, for an iteration target dir, every read-mount
// whose VirtualPrefix is a segment-prefix of (or equal to) dir, in
// precedence order, along with the physical directory each contributes.
// Merge/dedup of the resulting entries by name is the resolver's job
// (spec §4.6 "Iteration merges ... first occurrence wins").
func (r *Registry) IterationSources(dir string) []Candidate {
	var out []Candidate
	for i := len(r.reads) - 1; i >= 0; i-- {
		e := r.reads[i]
		if tail, ok := pathgrammar.TrimPrefix(dir, e.VirtualPrefix); ok {
			entry := e
			out = append(out, Candidate{Physical: pathgrammar.JoinPaths(e.PhysicalTarget, tail), Mount: &entry})
		}
	}
	return out
}

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("mountreg.Mode(%d)", int(m))
	}
}
