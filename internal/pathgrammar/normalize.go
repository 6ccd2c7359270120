package pathgrammar

import (
	"errors"
	"strings"
)

// ErrAboveRoot is returned by Normalize when NoAboveRootNavigation is set
// and folding the path would require more ".." segments than the path
// has leading components to pop — i.e. it would navigate above the root.
var ErrAboveRoot = errors.New("pathgrammar: path navigates above its root")

// NormalizeFlags controls Normalize's handling of ".." segments.
type NormalizeFlags uint8

const (
	// NoAboveRootNavigation rejects any path whose folded form would
	// need to climb above the root (absolute) or above the starting
	// point (relative), returning ErrAboveRoot instead of folding it.
	NoAboveRootNavigation NormalizeFlags = 1 << iota
)

// Normalize folds "." and ".." segments out of path, lexically, without
// ever consulting the filesystem. "." segments are dropped. A ".."
// segment pops the preceding non-root, non-".." segment if one exists;
// otherwise it is preserved (a leading ".." in a relative path) unless
// NoAboveRootNavigation is set, in which case Normalize fails with
// ErrAboveRoot.
//
// An empty path normalizes to an empty path, successfully — spec §4.1.
func Normalize(path string, flags NormalizeFlags) (string, error) {
	if path == "" {
		return "", nil
	}

	root, rest := splitRoot(path)
	segs := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' || r == '\\' })

	out := make([]string, 0, len(segs))
	leadingDotDot := 0
	for _, s := range segs {
		switch s {
		case ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
				continue
			}
			if root != "" {
				// Absolute path: ".." above the root is rejected when
				// NoAboveRootNavigation is set.
				if flags&NoAboveRootNavigation != 0 {
					return "", ErrAboveRoot
				}
				// No flag: lexically drop it, there is nowhere to climb to.
				continue
			}
			if flags&NoAboveRootNavigation != 0 {
				return "", ErrAboveRoot
			}
			out = append(out, "..")
			leadingDotDot++
		default:
			out = append(out, s)
		}
	}

	var b strings.Builder
	b.WriteString(root)
	for i, s := range out {
		if i > 0 || root != "" {
			if !(i == 0 && strings.HasSuffix(root, "/")) {
				b.WriteByte('/')
			}
		}
		b.WriteString(s)
	}
	result := b.String()
	if root == "/" && len(out) == 0 {
		return "/", nil
	}
	return result, nil
}

// splitRoot separates path's root marker (normalized to use '/') from the
// remainder. The root is returned already separator-normalized; for a
// bare absolute marker it is "/".
func splitRoot(path string) (root, rest string) {
	seg, next, ok := rootSegment(path)
	if !ok {
		return "", path
	}
	if seg.Length == 0 {
		return "/", path[next:]
	}
	return seg.Text(path), path[next:]
}
