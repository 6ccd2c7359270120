// Package osfs implements the native, root-backed backend: it reads and
// writes a real OS directory tree through the standard library's os
// package, the Go analogue of the source's fs_posix.c/fs_win32.c.
//
// Grounded on backend/union/upstream's use of a plain fs.Fs over a local
// path for its test fixtures, and on rclone's general convention of
// rooting a backend at one directory via securejoin-style containment;
// root escape is enforced with cyphar/filepath-securejoin (SPEC_FULL.md
// domain stack) rather than a hand-rolled ".." filter, since the
// resolver's own pathgrammar.Normalize is explicitly lexical-only (spec
// §3 "Normalization is purely lexical; it does not consult the
// filesystem") and containment against a real filesystem (symlinks
// included) needs a syscall-aware check.
package osfs

import (
	"context"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
)

// Config is the backend.Config accepted by Init: the host directory this
// instance is rooted at.
type Config struct {
	Root string
}

// Backend is a root-backed native filesystem backend.
type Backend struct {
	root string
}

// New returns an uninitialized native backend, matching the
// archivetype.Type.New constructor shape even though osfs is never
// registered as an archive type itself — kept for symmetry with how
// vfs.Config.RootBackend is constructed.
func New() *Backend { return &Backend{} }

func (b *Backend) Kind() string { return "native" }

func (b *Backend) Init(ctx context.Context, cfg backend.Config, _ stream.Stream) error {
	c, ok := cfg.(Config)
	if !ok || c.Root == "" {
		return backend.ErrInvalidArgs
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return backend.ErrInvalidArgs
	}
	b.root = abs
	return nil
}

func (b *Backend) Uninit(ctx context.Context) error { return nil }

// hostPath resolves a virtual path to a host path confined to b.root:
// ".." components and symlinks that would escape it are resolved as if
// b.root were the filesystem root, so the result always stays inside it.
func (b *Backend) hostPath(path string) (string, error) {
	joined, err := securejoin.SecureJoin(b.root, path)
	if err != nil {
		return "", backend.ErrInvalidArgs
	}
	return joined, nil
}

func (b *Backend) Info(ctx context.Context, path string, flags backend.Flags) (backend.FileInfo, error) {
	if special, ok := specialStream(path); ok {
		return backend.FileInfo{}, special.staterr()
	}
	hp, err := b.hostPath(path)
	if err != nil {
		return backend.FileInfo{}, err
	}
	fi, err := os.Lstat(hp)
	if err != nil {
		return backend.FileInfo{}, translateStatErr(err)
	}
	return toFileInfo(fi), nil
}

func (b *Backend) Open(ctx context.Context, path string, flags backend.Flags) (backend.File, error) {
	if special, ok := specialStream(path); ok {
		return special.open(flags)
	}
	hp, err := b.hostPath(path)
	if err != nil {
		return nil, err
	}

	osFlags := 0
	if flags.Has(backend.Write) {
		if flags.Has(backend.Append) {
			osFlags = os.O_WRONLY | os.O_APPEND | os.O_CREATE
		} else {
			osFlags = os.O_WRONLY | os.O_CREATE
		}
		if flags.Has(backend.Truncate) {
			osFlags |= os.O_TRUNC
		}
		if flags.Has(backend.Exclusive) {
			osFlags |= os.O_EXCL
		}
	} else {
		osFlags = os.O_RDONLY
	}

	f, err := os.OpenFile(hp, osFlags, 0o644)
	if err != nil {
		return nil, translateStatErr(err)
	}
	return &file{f: f, writable: flags.Has(backend.Write)}, nil
}

func (b *Backend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	hp, err := b.hostPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(hp)
	if err != nil {
		return nil, translateStatErr(err)
	}
	return &iterator{entries: entries}, nil
}

func (b *Backend) Remove(ctx context.Context, path string) error {
	hp, err := b.hostPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(hp); err != nil {
		return translateStatErr(err)
	}
	return nil
}

func (b *Backend) Rename(ctx context.Context, oldPath, newPath string) error {
	oldHP, err := b.hostPath(oldPath)
	if err != nil {
		return err
	}
	newHP, err := b.hostPath(newPath)
	if err != nil {
		return err
	}
	if err := os.Rename(oldHP, newHP); err != nil {
		return translateStatErr(err)
	}
	return nil
}

func (b *Backend) Mkdir(ctx context.Context, path string, flags backend.Flags) error {
	hp, err := b.hostPath(path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(hp, 0o755); err != nil {
		return translateStatErr(err)
	}
	return nil
}

func toFileInfo(fi os.FileInfo) backend.FileInfo {
	return backend.FileInfo{
		Size:             fi.Size(),
		LastModifiedTime: fi.ModTime(),
		LastAccessTime:   fi.ModTime(),
		IsDirectory:      fi.IsDir(),
		IsSymlink:        fi.Mode()&os.ModeSymlink != 0,
	}
}

func translateStatErr(err error) error {
	if os.IsNotExist(err) {
		return backend.ErrDoesNotExist
	}
	if os.IsExist(err) {
		return backend.ErrAlreadyExists
	}
	if os.IsPermission(err) {
		return backend.ErrInvalidOperation
	}
	return backend.ErrGeneric
}
