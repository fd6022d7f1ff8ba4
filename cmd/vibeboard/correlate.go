package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/internal/correlate"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <project-id>",
	Short: "Link ingested commits to recorded development sessions",
	Long: `Score every commit/session pair by temporal proximity and author
identity and persist the links. Existing links are only ever strengthened.`,
	Args: cobra.ExactArgs(1),
	RunE: runCorrelate,
}

func init() {
	correlateCmd.Flags().String("since", "", "Only commits after this date (YYYY-MM-DD)")
	correlateCmd.Flags().Float64("threshold", 0, "Minimum confidence to persist (default from config)")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sinceArg, _ := cmd.Flags().GetString("since")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	opts := correlate.CorrelateOptions{ConfidenceThreshold: threshold}
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

	result, err := svc.CorrelateSessions(ctx, args[0], opts)
	if err != nil {
		return err
	}

	fmt.Printf("created:         %d\n", result.Created)
	fmt.Printf("updated:         %d\n", result.Updated)
	fmt.Printf("high confidence: %d\n", result.HighConfidence)
	fmt.Printf("author matches:  %d\n", result.Stats.AuthorMatches)
	fmt.Printf("proximate:       %d\n", result.Stats.Proximate)
	return nil
}
