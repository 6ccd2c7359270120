package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mackron/gofs/internal/backend"
)

var lsCommand = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's direct children",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		ctx := cmd.Context()
		fsys, err := buildFS(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = fsys.Close(ctx) }()

		it, err := fsys.OpenIterator(ctx, path, backend.Flags(0))
		if err != nil {
			return err
		}
		defer func() { _ = fsys.CloseIterator(it) }()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		defer w.Flush()
		for {
			e, ok, err := it.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			kind := "file"
			if e.Info.IsDirectory {
				kind = "dir"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, humanize.Bytes(uint64(e.Info.Size)), e.Name)
		}
		return nil
	},
}
