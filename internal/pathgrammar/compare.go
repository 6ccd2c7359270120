package pathgrammar

// Compare reports whether a and b denote the same sequence of segments.
// Separators are equivalent regardless of kind ('/' == '\'); segment text
// is compared codepoint-exact (no case-folding, no unicode normalization
// — both are explicit Non-goals).
func Compare(a, b string) bool {
	as, bs := Segments(a), Segments(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].Text(a) != bs[i].Text(b) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a segment-aligned prefix of p: every
// segment of prefix matches the corresponding segment of p in order.
// A prefix with more segments than p is never a match. An empty prefix
// matches every path (spec §4.6 "virtual-prefix may be empty").
func HasPrefix(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	ps, prefixSegs := Segments(p), Segments(prefix)
	if len(prefixSegs) > len(ps) {
		return false
	}
	for i, seg := range prefixSegs {
		if seg.Text(prefix) != ps[i].Text(p) {
			return false
		}
	}
	return true
}

// TrimPrefix returns the segment-aligned tail of p after prefix, and true
// if prefix is a segment-aligned prefix of p. If prefix matches p
// entirely, the returned tail is "". If prefix is not a prefix of p,
// TrimPrefix returns ("", false) — the grammar's "trim_base returns ...
// null if not a prefix" (spec §4.1), expressed as a Go ok-bool.
func TrimPrefix(p, prefix string) (string, bool) {
	if !HasPrefix(p, prefix) {
		return "", false
	}
	if prefix == "" {
		return p, true
	}
	ps, prefixSegs := Segments(p), Segments(prefix)
	if len(prefixSegs) == len(ps) {
		return "", true
	}
	tailStart := ps[len(prefixSegs)].Offset
	return p[tailStart:], true
}
