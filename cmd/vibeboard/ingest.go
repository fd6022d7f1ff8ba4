package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [project-id]",
	Short: "Ingest commit history for a project",
	Long: `Walk a project's git history, classify each commit, filter dependency
noise, and persist commits with their file changes.

Examples:
  # Ingest the last 500 commits of one project
  vibeboard ingest my-app

  # Ingest only commits since a date, on one branch
  vibeboard ingest my-app --since 2026-01-01 --branch main

  # Ingest every configured project concurrently
  vibeboard ingest --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("limit", 0, "Maximum commits to walk (default from config)")
	ingestCmd.Flags().String("since", "", "Only commits after this date (YYYY-MM-DD)")
	ingestCmd.Flags().String("branch", "", "Restrict to one branch")
	ingestCmd.Flags().Bool("include-binary", false, "Track binary file changes too")
	ingestCmd.Flags().Bool("all", false, "Ingest every configured project")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	limit, _ := cmd.Flags().GetInt("limit")
	sinceArg, _ := cmd.Flags().GetString("since")
	branch, _ := cmd.Flags().GetString("branch")
	includeBinary, _ := cmd.Flags().GetBool("include-binary")
	allProjects, _ := cmd.Flags().GetBool("all")

	opts := ingest.Options{Limit: limit, Branch: branch, IncludeBinary: includeBinary}
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

	if allProjects {
		results, err := svc.IngestAllProjects(ctx, opts)
		for projectID, result := range results {
			printIngestResult(projectID, result)
		}
		if err != nil {
			return err
		}
		fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("project id required (or use --all)")
	}

	result, err := svc.IngestCommits(ctx, args[0], opts)
	if err != nil {
		return err
	}
	printIngestResult(args[0], result)
	fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printIngestResult(projectID string, result *ingest.Result) {
	fmt.Printf("%s:\n", projectID)
	fmt.Printf("  collected:    %d\n", result.Collected)
	fmt.Printf("  filtered:     %d\n", result.Filtered)
	fmt.Printf("  skipped:      %d\n", result.Skipped)
	fmt.Printf("  file changes: %d\n", result.FileChangesTracked)
	fmt.Printf("  branches:     %d\n", result.BranchesUpdated)
	for _, msg := range result.Errors {
		fmt.Printf("  warning: %s\n", msg)
	}
}
