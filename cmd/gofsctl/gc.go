package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mackron/gofs/internal/archivecache"
)

var (
	gcPolicyFlag    string
	gcThresholdFlag time.Duration
)

var gcCommand = &cobra.Command{
	Use:   "gc",
	Short: "Run an archive cache garbage-collection sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		var policy archivecache.Policy
		switch gcPolicyFlag {
		case "threshold":
			policy = archivecache.PolicyThreshold
		case "age":
			policy = archivecache.PolicyAge
		case "full":
			policy = archivecache.PolicyFull
		default:
			return fmt.Errorf("gofsctl: --policy must be threshold, age or full, got %q", gcPolicyFlag)
		}

		ctx := cmd.Context()
		fsys, err := buildFS(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = fsys.Close(ctx) }()

		n := fsys.GCArchives(ctx, policy, gcThresholdFlag)
		fmt.Fprintf(cmd.OutOrStdout(), "collected %d archive instance(s)\n", n)
		return nil
	},
}

func init() {
	gcCommand.Flags().StringVar(&gcPolicyFlag, "policy", "threshold", "threshold, age or full")
	gcCommand.Flags().DurationVar(&gcThresholdFlag, "threshold", 5*time.Minute, "idle duration for --policy threshold")
}
