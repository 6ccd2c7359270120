package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mackron/gofs/internal/backend"
)

var catCommand = &cobra.Command{
	Use:   "cat <path>",
	Short: "Write a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fsys, err := buildFS(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = fsys.Close(ctx) }()

		h, err := fsys.Open(ctx, args[0], backend.Read)
		if err != nil {
			return err
		}
		defer func() { _ = fsys.CloseHandle(h) }()

		_, err = io.Copy(cmd.OutOrStdout(), h.File)
		return err
	},
}
