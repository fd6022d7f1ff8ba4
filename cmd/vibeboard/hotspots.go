package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/internal/analytics"
)

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots <project-id>",
	Short: "Rank a project's frequently changed files by risk",
	Args:  cobra.ExactArgs(1),
	RunE:  runHotspots,
}

func init() {
	hotspotsCmd.Flags().String("since", "", "Only changes after this date (YYYY-MM-DD)")
	hotspotsCmd.Flags().Int("min-changes", 0, "Minimum change count to rank (default 3)")
	hotspotsCmd.Flags().Int("limit", 0, "Maximum files to list (default 10)")
}

func runHotspots(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sinceArg, _ := cmd.Flags().GetString("since")
	minChanges, _ := cmd.Flags().GetInt("min-changes")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := analytics.HotspotOptions{MinChanges: minChanges, Limit: limit}
	if sinceArg != "" {
		since, err := time.Parse("2006-01-02", sinceArg)
		if err != nil {
			return fmt.Errorf("invalid --since value %q (want YYYY-MM-DD)", sinceArg)
		}
		opts.Since = &since
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	hotspots, err := svc.GetFileHotspots(ctx, args[0], opts)
	if err != nil {
		return err
	}

	if len(hotspots) == 0 {
		fmt.Println("No hotspots found. Has this project been ingested?")
		return nil
	}

	fmt.Printf("%-5s %-50s %-8s %-8s %s\n", "SCORE", "PATH", "CHANGES", "AUTHORS", "LAST CHANGED")
	for _, h := range hotspots {
		fmt.Printf("%.2f  %-50s %-8d %-8d %s\n",
			h.Score, h.Path, h.ChangeCount, h.Contributors, h.LastChangedAt.Format("2006-01-02"))
	}
	return nil
}
