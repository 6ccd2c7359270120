// Command gofsctl mounts, lists and cats files through a gofs
// filesystem instance from the command line — the role the source's
// examples/mounting.c and tests/fstest.c play for the C library,
// rebuilt on the teacher's own CLI stack (cobra + pflag).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mackron/gofs/backends/osfs"
	"github.com/mackron/gofs/internal/fsconfig"
	"github.com/mackron/gofs/internal/mountreg"
	"github.com/mackron/gofs/vfs"
)

var (
	rootDir    string
	configPath string
	mountFlags []string
)

var rootCmd = &cobra.Command{
	Use:   "gofsctl",
	Short: "Inspect and drive a gofs virtual file system from the command line",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootDir, "root", ".", "host directory the filesystem's root backend resolves against")
	pf.StringVar(&configPath, "config", "", "YAML mount/archive-type config file (see internal/fsconfig)")
	pf.StringArrayVar(&mountFlags, "mount", nil, "additional mount, physical:virtual:mode (mode is read or write), repeatable")

	rootCmd.AddCommand(lsCommand)
	rootCmd.AddCommand(catCommand)
	rootCmd.AddCommand(statCommand)
	rootCmd.AddCommand(gcCommand)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gofsctl:", err)
		os.Exit(1)
	}
}

// buildFS assembles a *vfs.FS from --root, --config and --mount, in
// that order: the config file's archive types are known before New so
// they can seed vfs.Config, its mounts and any --mount flags are
// applied to the instance once it exists.
func buildFS(ctx context.Context) (*vfs.FS, error) {
	var cfgFile *fsconfig.File
	var err error
	if configPath != "" {
		cfgFile, err = fsconfig.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := vfs.Config{
		RootBackend: osfs.New(),
		RootConfig:  osfs.Config{Root: rootDir},
	}
	if cfgFile != nil {
		cfg.ArchiveTypes, err = cfgFile.ArchiveTypeList()
		if err != nil {
			return nil, err
		}
	}

	fsys, err := vfs.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gofsctl: init filesystem: %w", err)
	}

	if cfgFile != nil {
		if err := cfgFile.ApplyMounts(fsys); err != nil {
			return nil, err
		}
	}
	for _, spec := range mountFlags {
		physical, virtual, mode, err := parseMountFlag(spec)
		if err != nil {
			return nil, err
		}
		fsys.Mount(physical, virtual, mode)
	}
	return fsys, nil
}

func parseMountFlag(spec string) (physical, virtual string, mode mountreg.Mode, err error) {
	parts := splitThree(spec)
	if parts == nil {
		return "", "", 0, fmt.Errorf("gofsctl: --mount expects physical:virtual:mode, got %q", spec)
	}
	physical, virtual, modeStr := parts[0], parts[1], parts[2]
	switch modeStr {
	case "read":
		mode = mountreg.Read
	case "write":
		mode = mountreg.Write
	default:
		return "", "", 0, fmt.Errorf("gofsctl: --mount mode must be read or write, got %q", modeStr)
	}
	return physical, virtual, mode, nil
}

// splitThree splits spec on ":" into exactly three fields, or returns
// nil if it does not have exactly two separators.
func splitThree(spec string) []string {
	var fields []string
	start := 0
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			fields = append(fields, spec[start:i])
			start = i + 1
		}
	}
	fields = append(fields, spec[start:])
	if len(fields) != 3 {
		return nil
	}
	return fields
}
