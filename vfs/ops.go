package vfs

import (
	"context"
	"errors"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/mountreg"
	"github.com/mackron/gofs/internal/obslog"
)

// Open resolves path against the mount registry and opens it (spec §6
// "file_open(fs, path, flags) → file", §4.7 "Resolver").
func (fs *FS) Open(ctx context.Context, path string, flags backend.Flags) (*backend.Handle, error) {
	norm, err := fs.normalize(path, flags)
	if err != nil {
		return nil, err
	}

	if flags.Has(backend.Write) {
		return fs.openWrite(ctx, norm, flags)
	}

	cands := fs.mounts.ReadCandidates(norm, flags.Has(backend.OnlyMounts))
	lastErr := error(backend.ErrDoesNotExist)
	for _, c := range cands {
		res, err := fs.descend(ctx, c.Physical, flags)
		if err != nil {
			if errors.Is(err, backend.ErrDoesNotExist) {
				lastErr = err
				continue
			}
			return nil, err
		}
		f, err := res.be.Open(ctx, res.path, flags)
		if err != nil {
			releaseAll(res.refs)
			if errors.Is(err, backend.ErrDoesNotExist) {
				lastErr = err
				continue
			}
			return nil, err
		}
		fs.mu.Lock()
		fs.liveFiles++
		fs.mu.Unlock()
		h := backend.NewHandle(res.be, f, flags, res.refs)
		obslog.Resolver(fs.log, norm).Debug("opened")
		return h, nil
	}
	return nil, lastErr
}

// openWrite resolves path against the write-mount list only: the first
// matching write-mount is used, with no fallback, and writes never
// descend into archives (spec §4.6 "Resolution against write-mounts").
func (fs *FS) openWrite(ctx context.Context, norm string, flags backend.Flags) (*backend.Handle, error) {
	c, ok := fs.mounts.WriteCandidate(norm, flags.Has(backend.IgnoreMounts))
	if !ok {
		return nil, backend.ErrDoesNotExist
	}
	f, err := fs.root.Open(ctx, c.Physical, flags)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	fs.liveFiles++
	fs.mu.Unlock()
	return backend.NewHandle(fs.root, f, flags, nil), nil
}

// CloseHandle closes a handle obtained from Open and updates the live
// handle count Close() checks before tearing down the root backend.
func (fs *FS) CloseHandle(h *backend.Handle) error {
	err := h.Close()
	fs.mu.Lock()
	fs.liveFiles--
	fs.mu.Unlock()
	return err
}

// Info stats path without opening it (spec §6 "info(fs, path, flags) →
// file_info"), following the same descent and candidate-fallback rules
// as Open.
func (fs *FS) Info(ctx context.Context, path string, flags backend.Flags) (backend.FileInfo, error) {
	norm, err := fs.normalize(path, flags)
	if err != nil {
		return backend.FileInfo{}, err
	}
	cands := fs.mounts.ReadCandidates(norm, flags.Has(backend.OnlyMounts))
	lastErr := error(backend.ErrDoesNotExist)
	for _, c := range cands {
		res, err := fs.descend(ctx, c.Physical, flags)
		if err != nil {
			if errors.Is(err, backend.ErrDoesNotExist) {
				lastErr = err
				continue
			}
			return backend.FileInfo{}, err
		}
		info, err := res.be.Info(ctx, res.path, flags)
		releaseAll(res.refs)
		if err != nil {
			if errors.Is(err, backend.ErrDoesNotExist) {
				lastErr = err
				continue
			}
			return backend.FileInfo{}, err
		}
		return info, nil
	}
	return backend.FileInfo{}, lastErr
}

// OpenIterator begins iterating dir's direct children, merging every
// read-mount whose virtual prefix matches (spec §6 "first(fs, directory,
// flags) → iterator", §4.6 "Iteration merges").
func (fs *FS) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (*backend.IteratorHandle, error) {
	norm, err := fs.normalize(dir, flags)
	if err != nil {
		return nil, err
	}
	merged, refs, err := fs.mergeIteration(ctx, norm, flags)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	fs.liveIters++
	fs.mu.Unlock()
	return backend.NewIteratorHandle(merged, refs), nil
}

// mergeIteration opens an iterator over every candidate directory source
// (mount contributions in precedence order, then — unless only-mounts is
// set — the direct path) and returns a single iterator that yields the
// de-duplicated union, first occurrence wins (spec §4.6).
func (fs *FS) mergeIteration(ctx context.Context, norm string, flags backend.Flags) (backend.Iterator, []backend.ArchiveRef, error) {
	candidates := fs.mounts.IterationSources(norm)
	physicalPaths := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		physicalPaths = append(physicalPaths, c.Physical)
	}
	if !flags.Has(backend.OnlyMounts) {
		physicalPaths = append(physicalPaths, norm)
	}

	var iters []backend.Iterator
	var allRefs []backend.ArchiveRef
	for _, p := range physicalPaths {
		res, err := fs.descend(ctx, p, flags)
		if err != nil {
			if errors.Is(err, backend.ErrDoesNotExist) {
				continue
			}
			closeAll(iters)
			releaseAll(allRefs)
			return nil, nil, err
		}
		it, err := res.be.OpenIterator(ctx, res.path, flags)
		if err != nil {
			releaseAll(res.refs)
			if errors.Is(err, backend.ErrDoesNotExist) {
				continue
			}
			closeAll(iters)
			releaseAll(allRefs)
			return nil, nil, err
		}
		iters = append(iters, it)
		allRefs = append(allRefs, res.refs...)
	}
	if len(iters) == 0 {
		return nil, nil, backend.ErrDoesNotExist
	}
	return &mergedIterator{iters: iters, seen: make(map[string]struct{})}, allRefs, nil
}

func closeAll(iters []backend.Iterator) {
	for _, it := range iters {
		_ = it.Close()
	}
}

// mergedIterator walks a list of source iterators in precedence order,
// skipping names already yielded by a higher-precedence source ("first
// occurrence wins", spec §4.6).
type mergedIterator struct {
	iters []backend.Iterator
	seen  map[string]struct{}
	idx   int
}

func (m *mergedIterator) Next() (backend.Entry, bool, error) {
	for m.idx < len(m.iters) {
		e, ok, err := m.iters[m.idx].Next()
		if err != nil {
			m.closeRest()
			return backend.Entry{}, false, err
		}
		if !ok {
			m.idx++
			continue
		}
		if _, dup := m.seen[e.Name]; dup {
			continue
		}
		m.seen[e.Name] = struct{}{}
		return e, true, nil
	}
	return backend.Entry{}, false, nil
}

func (m *mergedIterator) Close() error {
	return m.closeRest()
}

func (m *mergedIterator) closeRest() error {
	var first error
	for ; m.idx < len(m.iters); m.idx++ {
		if err := m.iters[m.idx].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CloseIterator tears down an iterator handle, matching the teardown
// bookkeeping CloseHandle does for files.
func (fs *FS) CloseIterator(h *backend.IteratorHandle) error {
	err := h.Close()
	fs.mu.Lock()
	fs.liveIters--
	fs.mu.Unlock()
	return err
}

// Remove deletes path via the write-mount resolution rules (spec §6
// "remove(fs, path)").
func (fs *FS) Remove(ctx context.Context, path string, flags backend.Flags) error {
	norm, err := fs.normalize(path, flags)
	if err != nil {
		return err
	}
	c, ok := fs.mounts.WriteCandidate(norm, flags.Has(backend.IgnoreMounts))
	if !ok {
		return backend.ErrDoesNotExist
	}
	return fs.root.Remove(ctx, c.Physical)
}

// Rename renames old to new, both resolved via the write-mount rules.
// Renames whose resolved mounts differ return backend.ErrCrossMount
// (spec §6 "rename(fs, old, new)"; see DESIGN.md's Open Question
// decision on cross-mount renames).
func (fs *FS) Rename(ctx context.Context, oldPath, newPath string, flags backend.Flags) error {
	oldNorm, err := fs.normalize(oldPath, flags)
	if err != nil {
		return err
	}
	newNorm, err := fs.normalize(newPath, flags)
	if err != nil {
		return err
	}
	oldC, ok := fs.mounts.WriteCandidate(oldNorm, flags.Has(backend.IgnoreMounts))
	if !ok {
		return backend.ErrDoesNotExist
	}
	newC, ok := fs.mounts.WriteCandidate(newNorm, flags.Has(backend.IgnoreMounts))
	if !ok {
		return backend.ErrDoesNotExist
	}
	if mountTarget(oldC) != mountTarget(newC) {
		return backend.ErrCrossMount
	}
	return fs.root.Rename(ctx, oldC.Physical, newC.Physical)
}

// mountTarget returns the physical target a candidate's mount resolved
// through, or "" for a direct (un-mounted) candidate — used only to
// detect whether a rename's two endpoints share the same write-mount.
func mountTarget(c mountreg.Candidate) string {
	if c.Mount == nil {
		return ""
	}
	return c.Mount.PhysicalTarget
}

// Mkdir creates a directory via the write-mount resolution rules (spec
// §6 "mkdir(fs, path, flags)").
func (fs *FS) Mkdir(ctx context.Context, path string, flags backend.Flags) error {
	norm, err := fs.normalize(path, flags)
	if err != nil {
		return err
	}
	c, ok := fs.mounts.WriteCandidate(norm, flags.Has(backend.IgnoreMounts))
	if !ok {
		return backend.ErrDoesNotExist
	}
	return fs.root.Mkdir(ctx, c.Physical, flags)
}
