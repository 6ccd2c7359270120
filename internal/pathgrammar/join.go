package pathgrammar

import "strings"

// JoinPaths concatenates base and tail with exactly one separator between
// them (spec §4.1 "append"). An empty base or tail is a no-op for that
// side: JoinPaths("", "a") == "a" and JoinPaths("a", "") == "a".
func JoinPaths(base, tail string) string {
	if base == "" {
		return tail
	}
	if tail == "" {
		return base
	}
	trimmedBase := strings.TrimRight(base, "/\\")
	trimmedTail := strings.TrimLeft(tail, "/\\")
	if trimmedBase == "" {
		// base was all separators (e.g. "/"): keep one.
		return "/" + trimmedTail
	}
	return trimmedBase + "/" + trimmedTail
}
