// Package vfs is the resolver: it turns a virtual path plus flags into
// a call against some backend, walking through mounts and, where
// permitted, nested archives (spec §4.7 "Resolver"). It is the owning
// filesystem instance spec.md's lifecycle section describes: created by
// New, destroyed by Close, with mounts added/removed any time between.
//
// Grounded on backend/archive/archive.go's Fs (the teacher's own
// "archive-aware filesystem" type) for the overall shape of a resolver
// that owns a mount list, an archive-type list and an archive cache, and
// on backend/union/union.go for the candidate/fallback walk over an
// ordered list of upstreams.
package vfs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mackron/gofs/internal/archivecache"
	"github.com/mackron/gofs/internal/archivetype"
	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/mountreg"
	"github.com/mackron/gofs/internal/obslog"
	"github.com/mackron/gofs/internal/pathgrammar"
)

// Config is the configuration passed to New (spec §6 "init(config) →
// fs"): the native root backend, its backend-specific configuration, and
// the archive types this instance recognizes during descent.
type Config struct {
	// RootBackend is the owning native backend every relative path and
	// every mount's physical-target is ultimately resolved against (spec
	// §3 "Mount entry": "physical-target is interpreted against the
	// owning filesystem").
	RootBackend backend.Backend
	RootConfig  backend.Config

	// ArchiveTypes lists the (extension, backend constructor) pairs this
	// instance recognizes (spec §4.4). Order is the tie-break.
	ArchiveTypes []archivetype.Type

	// Log receives structured diagnostics; nil uses obslog.Default()
	// (logrus's standard logger unless obslog.SetDefault replaced it), matching how the teacher's cmd/ entry points wire logrus
	// without requiring every caller to supply one.
	Log *logrus.Logger
}

// FS is one virtual file system instance (spec §3 data model, "A
// filesystem instance"). It is not safe for concurrent use — spec §5's
// single-threaded-per-instance contract — callers serialize calls to the
// same FS themselves.
type FS struct {
	root         backend.Backend
	archiveTypes *archivetype.Registry
	mounts       *mountreg.Registry
	cache        *archivecache.Cache
	log          *logrus.Logger

	// liveFiles and liveIters are not required for correctness —
	// closing a handle is self-contained — but Close uses them to refuse
	// to tear down the root backend while handles are still outstanding,
	// the Go equivalent of the source requiring every handle be freed
	// before uninit.
	mu        sync.Mutex
	liveFiles int
	liveIters int
}

// New creates a filesystem instance and initializes its root backend
// (spec §6 "init(config) → fs").
func New(ctx context.Context, cfg Config) (*FS, error) {
	if cfg.RootBackend == nil {
		return nil, backend.ErrInvalidArgs
	}
	if err := cfg.RootBackend.Init(ctx, cfg.RootConfig, nil); err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = obslog.Default()
	}
	return &FS{
		root:         cfg.RootBackend,
		archiveTypes: archivetype.NewRegistry(cfg.ArchiveTypes...),
		mounts:       mountreg.New(),
		cache:        archivecache.New(),
		log:          log,
	}, nil
}

// Close uninitializes the root backend and every cached archive instance
// (spec §6 "uninit(fs)"). It fails with backend.ErrBusy if handles or
// iterators are still open, mirroring the lifecycle rule that "file
// handles outlive no more than their owning filesystem."
func (fs *FS) Close(ctx context.Context) error {
	fs.mu.Lock()
	busy := fs.liveFiles > 0 || fs.liveIters > 0
	fs.mu.Unlock()
	if busy {
		return backend.ErrBusy
	}
	fs.cache.GC(ctx, archivecache.PolicyFull, 0)
	return fs.root.Uninit(ctx)
}

// Mount adds a mount binding (spec §6 "mount(fs, physical, virtual_prefix
// | null, mode)"). virtualPrefix may be "" to match every path.
func (fs *FS) Mount(physical, virtualPrefix string, mode mountreg.Mode) {
	fs.mounts.Mount(physical, virtualPrefix, mode)
	fs.log.WithFields(logrus.Fields{
		"physical": physical, "virtualPrefix": virtualPrefix, "mode": mode.String(),
	}).Debug("vfs: mount added")
}

// Unmount removes every mount bound to physical in the given mode,
// returning the number removed (spec §6 "unmount(fs, physical, mode)").
func (fs *FS) Unmount(physical string, mode mountreg.Mode) int {
	n := fs.mounts.Unmount(physical, mode)
	fs.log.WithFields(logrus.Fields{
		"physical": physical, "mode": mode.String(), "removed": n,
	}).Debug("vfs: mount removed")
	return n
}

// GCArchives runs a garbage-collection sweep of the archive cache (spec
// §6 "gc_archives(fs, policy)"), returning the number of entries
// collected. threshold is only consulted for archivecache.PolicyThreshold.
func (fs *FS) GCArchives(ctx context.Context, policy archivecache.Policy, threshold time.Duration) int {
	return fs.cache.GC(ctx, policy, threshold)
}

func (fs *FS) normalize(p string, flags backend.Flags) (string, error) {
	var pgFlags pathgrammar.NormalizeFlags
	if flags.Has(backend.NoAboveRootNavigation) {
		pgFlags |= pathgrammar.NoAboveRootNavigation
	}
	norm, err := pathgrammar.Normalize(p, pgFlags)
	if err != nil {
		if errors.Is(err, pathgrammar.ErrAboveRoot) {
			// spec §8 end-to-end scenario 5: an above-root-navigation
			// rejection during file_open reports does-not-exist, not
			// invalid-args — the caller cannot distinguish "never existed"
			// from "escaped the root", by design.
			return "", backend.ErrDoesNotExist
		}
		return "", err
	}
	return norm, nil
}
