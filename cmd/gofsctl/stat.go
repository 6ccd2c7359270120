package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mackron/gofs/internal/backend"
)

var statCommand = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print a path's file info without opening it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fsys, err := buildFS(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = fsys.Close(ctx) }()

		info, err := fsys.Info(ctx, args[0], backend.Flags(0))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:\t%s\n", args[0])
		fmt.Fprintf(out, "directory:\t%t\n", info.IsDirectory)
		fmt.Fprintf(out, "symlink:\t%t\n", info.IsSymlink)
		fmt.Fprintf(out, "size:\t%s\n", humanize.Bytes(uint64(info.Size)))
		if !info.LastModifiedTime.IsZero() {
			fmt.Fprintf(out, "modified:\t%s\n", humanize.Time(info.LastModifiedTime))
		}
		return nil
	},
}
