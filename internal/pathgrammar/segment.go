// Package pathgrammar implements the path grammar described by the VFS
// resolver: segment iteration, lexical normalization, prefix matching and
// joining over paths whose segments may be separated by either '/' or '\'.
//
// It is the Go counterpart of the source's fs_path.c: a value-oriented,
// allocation-light API operating on plain strings rather than
// null-terminated-or-length buffers.
package pathgrammar

import "strings"

// isSep reports whether r is a path separator. '/' and '\' are accepted
// interchangeably on input; output is always normalized to '/'.
func isSep(r byte) bool {
	return r == '/' || r == '\\'
}

// Segment is a half-open [Offset, Offset+Length) span into the path string
// it was produced from. A Segment never includes the separator that
// follows it.
type Segment struct {
	Offset int
	Length int
}

// Text returns the segment's text within path.
func (s Segment) Text(path string) string {
	return path[s.Offset : s.Offset+s.Length]
}

// rootSegment detects a root-marker segment at the start of path: a bare
// leading separator (absolute path, yielded as a zero-length segment so
// round-trip reconstruction can restore the leading slash), a drive letter
// ("C:"), or a UNC authority ("//host"). It returns the segment and the
// byte offset where ordinary segment scanning should resume; ok is false
// if path has no root marker.
func rootSegment(path string) (seg Segment, next int, ok bool) {
	n := len(path)
	if n == 0 {
		return Segment{}, 0, false
	}
	// UNC authority: "//host" or "\\host"
	if n >= 2 && isSep(path[0]) && isSep(path[1]) {
		i := 2
		for i < n && !isSep(path[i]) {
			i++
		}
		if i > 2 {
			return Segment{Offset: 0, Length: i}, i, true
		}
	}
	// Drive letter: a letter and ':' as the first two bytes, whatever follows
	if n >= 2 && isDriveLetter(path[0]) && path[1] == ':' {
		return Segment{Offset: 0, Length: 2}, 2, true
	}
	// Bare absolute marker: a lone leading separator
	if isSep(path[0]) {
		return Segment{Offset: 0, Length: 0}, 1, true
	}
	return Segment{}, 0, false
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// FirstSegment returns the first segment of path (which may be a root
// marker) and whether one was found.
func FirstSegment(path string) (Segment, bool) {
	if seg, next, ok := rootSegment(path); ok {
		return seg, true
	} else {
		return firstOrdinarySegment(path, next)
	}
}

// NextSegment returns the segment following cur, or false if cur was the
// last segment in path.
func NextSegment(path string, cur Segment) (Segment, bool) {
	start := cur.Offset + cur.Length
	// A zero-length root marker is followed immediately by the first
	// ordinary segment, without skipping a separator (it has none of its
	// own to skip past — the separator was already consumed by rootSegment
	// logic via its Length for non-bare markers, or doesn't exist for the
	// bare marker).
	if cur.Length == 0 && cur.Offset == 0 {
		return firstOrdinarySegment(path, 1)
	}
	return firstOrdinarySegment(path, start)
}

// firstOrdinarySegment scans forward from byte offset start, skipping any
// run of separators, and returns the next non-empty segment.
func firstOrdinarySegment(path string, start int) (Segment, bool) {
	n := len(path)
	i := start
	for i < n && isSep(path[i]) {
		i++
	}
	if i >= n {
		return Segment{}, false
	}
	j := i
	for j < n && !isSep(path[j]) {
		j++
	}
	return Segment{Offset: i, Length: j - i}, true
}

// LastSegment returns the final segment of path.
func LastSegment(path string) (Segment, bool) {
	var last Segment
	found := false
	for seg, ok := FirstSegment(path); ok; seg, ok = NextSegment(path, seg) {
		last, found = seg, true
	}
	return last, found
}

// PrevSegment returns the segment preceding cur, or false if cur was the
// first segment. Segments are walked from the start since the grammar
// does not require O(1) reverse traversal.
func PrevSegment(path string, cur Segment) (Segment, bool) {
	var prev Segment
	found := false
	for seg, ok := FirstSegment(path); ok; seg, ok = NextSegment(path, seg) {
		if seg.Offset == cur.Offset && seg.Length == cur.Length {
			return prev, found
		}
		prev, found = seg, true
	}
	return Segment{}, false
}

// Segments returns the forward list of path's segments, root marker
// first if present.
func Segments(path string) []Segment {
	var out []Segment
	for seg, ok := FirstSegment(path); ok; seg, ok = NextSegment(path, seg) {
		out = append(out, seg)
	}
	return out
}

// ReverseSegments returns path's segments in reverse order.
func ReverseSegments(path string) []Segment {
	fwd := Segments(path)
	out := make([]Segment, len(fwd))
	for i, seg := range fwd {
		out[len(fwd)-1-i] = seg
	}
	return out
}

// Join reconstructs a path string from path's segments using '/' as the
// separator, restoring a leading slash for a bare root marker. This is
// the inverse used by the round-trip law (spec §4.1, §8): rebuilding from
// either Segments or ReverseSegments must reproduce the original path
// byte-for-byte modulo separator kind.
func Join(path string, segs []Segment) string {
	var b strings.Builder
	for i, seg := range segs {
		if seg.Length == 0 && seg.Offset == 0 {
			b.WriteByte('/')
			continue
		}
		if i > 0 {
			prevWasBareRoot := i > 0 && segs[i-1].Length == 0 && segs[i-1].Offset == 0
			if !prevWasBareRoot {
				b.WriteByte('/')
			}
		}
		b.WriteString(seg.Text(path))
	}
	// A trailing separator run after the last segment is restored as one '/'.
	if n := len(segs); n > 0 {
		end := segs[n-1].Offset + segs[n-1].Length
		if end < len(path) && strings.TrimLeft(path[end:], "/\\") == "" && !strings.HasSuffix(b.String(), "/") {
			b.WriteByte('/')
		}
	}
	return b.String()
}

// IsAbsolute reports whether path begins with a root marker of any kind.
func IsAbsolute(path string) bool {
	_, _, ok := rootSegment(path)
	return ok
}
