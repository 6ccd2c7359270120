// Package subfs implements the sub-filesystem backend: a root-backed
// backend that reprojects a path prefix onto another *vfs.FS instance
// (spec.md §9 "sub-filesystem backend"). It unifies the source's
// divergent fs_sub/fs_subfs split into one backend with one flag,
// IgnoreMounts, per the Open Question decision in DESIGN.md.
//
// subfs never reaches into the target filesystem's internals; it only
// calls the target's own public operations, the same boundary every
// other backend respects when it needs to compose with the resolver
// (spec §4.2).
package subfs

import (
	"context"
	"path"
	"strings"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
	"github.com/mackron/gofs/vfs"
)

// Config configures a subfs backend. Target is the filesystem paths are
// reprojected onto; Prefix is where inside Target this backend's root
// lives; IgnoreMounts, when set, is OR'd into every call forwarded to
// Target so descent never crosses back out through Target's own mounts.
type Config struct {
	Target       *vfs.FS
	Prefix       string
	IgnoreMounts bool
}

// Backend is the sub-filesystem backend.
type Backend struct {
	target       *vfs.FS
	prefix       string
	ignoreMounts bool
}

// New returns an uninitialized subfs backend.
func New() backend.Backend { return &Backend{} }

func (b *Backend) Kind() string { return "sub" }

func (b *Backend) Init(ctx context.Context, cfg backend.Config, _ stream.Stream) error {
	c, ok := cfg.(Config)
	if !ok || c.Target == nil {
		return backend.ErrInvalidArgs
	}
	b.target = c.Target
	b.prefix = path.Clean("/" + c.Prefix)
	b.ignoreMounts = c.IgnoreMounts
	return nil
}

func (b *Backend) Uninit(ctx context.Context) error { return nil }

func (b *Backend) reproject(p string) string {
	return path.Join(b.prefix, strings.TrimPrefix(p, "/"))
}

func (b *Backend) withIgnoreMounts(flags backend.Flags) backend.Flags {
	if b.ignoreMounts {
		return flags | backend.IgnoreMounts
	}
	return flags
}

func (b *Backend) Info(ctx context.Context, p string, flags backend.Flags) (backend.FileInfo, error) {
	return b.target.Info(ctx, b.reproject(p), b.withIgnoreMounts(flags))
}

func (b *Backend) Open(ctx context.Context, p string, flags backend.Flags) (backend.File, error) {
	h, err := b.target.Open(ctx, b.reproject(p), b.withIgnoreMounts(flags))
	if err != nil {
		return nil, err
	}
	return &file{fs: b.target, h: h}, nil
}

func (b *Backend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	h, err := b.target.OpenIterator(ctx, b.reproject(dir), b.withIgnoreMounts(flags))
	if err != nil {
		return nil, err
	}
	return &iterator{ctx: ctx, fs: b.target, h: h}, nil
}

func (b *Backend) Remove(ctx context.Context, p string) error {
	return b.target.Remove(ctx, b.reproject(p), b.writeFlags())
}

func (b *Backend) Rename(ctx context.Context, oldPath, newPath string) error {
	return b.target.Rename(ctx, b.reproject(oldPath), b.reproject(newPath), b.writeFlags())
}

func (b *Backend) Mkdir(ctx context.Context, p string, flags backend.Flags) error {
	return b.target.Mkdir(ctx, b.reproject(p), b.withIgnoreMounts(flags))
}

func (b *Backend) writeFlags() backend.Flags {
	if b.ignoreMounts {
		return backend.IgnoreMounts
	}
	return 0
}
