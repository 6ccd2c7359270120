// Package fsconfig loads a declarative mount list and archive-type table
// from YAML (SPEC_FULL.md §2 "Configuration") and applies it to a
// vfs.FS, playing the role the teacher's own YAML-shaped config
// structures (gopkg.in/yaml.v2, struct tags, a LoadFromFile method) play
// for application setup.
package fsconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/mackron/gofs/backends/pakfs"
	"github.com/mackron/gofs/backends/zipfs"
	"github.com/mackron/gofs/internal/archivetype"
	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/mountreg"
	"github.com/mackron/gofs/vfs"
)

// MountSpec is one declared mount entry.
type MountSpec struct {
	Physical      string `yaml:"physical"`
	VirtualPrefix string `yaml:"virtual_prefix"`
	Mode          string `yaml:"mode"` // "read" or "write"
}

// ArchiveTypeSpec names a registered archive kind by the short name
// known to builtinBackends, paired with the extension it recognizes.
type ArchiveTypeSpec struct {
	Extension string `yaml:"extension"`
	Kind      string `yaml:"kind"` // "zip" or "pak"
}

// File is the top-level YAML document shape (SPEC_FULL.md §2's
// "declarative mount-list config").
type File struct {
	Mounts       []MountSpec       `yaml:"mounts"`
	ArchiveTypes []ArchiveTypeSpec `yaml:"archive_types"`
}

// builtinBackends maps a config-file kind name to the archive backend
// constructor it selects. Only the backends that are themselves archive
// types (stream-backed, read-only) belong here — osfs and subfs are
// root-backed and never appear as a descent target.
var builtinBackends = map[string]func() backend.Backend{
	"zip": zipfs.New,
	"pak": pakfs.New,
}

// Load parses a YAML document into a File.
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fsconfig: parse: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a YAML config file, the byte-count-once
// pattern the teacher's own Configuration.LoadFromFile uses.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fsconfig: read %s: %w", path, err)
	}
	return Load(data)
}

// ArchiveTypeList resolves the file's ArchiveTypes into
// []archivetype.Type, suitable for vfs.Config.ArchiveTypes. An unknown
// Kind is reported rather than silently skipped.
func (f *File) ArchiveTypeList() ([]archivetype.Type, error) {
	out := make([]archivetype.Type, 0, len(f.ArchiveTypes))
	for _, spec := range f.ArchiveTypes {
		ctor, ok := builtinBackends[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("fsconfig: unknown archive kind %q for extension %q", spec.Kind, spec.Extension)
		}
		out = append(out, archivetype.Type{Extension: spec.Extension, New: ctor})
	}
	return out, nil
}

// ApplyMounts registers every declared mount against fsys, in file
// order (so precedence within the config file follows declaration
// order, the same "later mount wins" rule vfs.FS.Mount already applies
// across repeated calls).
func (f *File) ApplyMounts(fsys *vfs.FS) error {
	for _, m := range f.Mounts {
		mode, err := parseMode(m.Mode)
		if err != nil {
			return err
		}
		fsys.Mount(m.Physical, m.VirtualPrefix, mode)
	}
	return nil
}

func parseMode(s string) (mountreg.Mode, error) {
	switch s {
	case "read", "":
		return mountreg.Read, nil
	case "write":
		return mountreg.Write, nil
	default:
		return 0, fmt.Errorf("fsconfig: unknown mount mode %q", s)
	}
}
