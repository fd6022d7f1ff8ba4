package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <project-id>",
	Short: "Summarize a project's commit activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.GetProjectGitStats(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Project %s\n\n", stats.ProjectID)
	fmt.Printf("commits:       %d (7d: %d, 30d: %d)\n", stats.TotalCommits, stats.CommitsLast7d, stats.CommitsLast30d)
	fmt.Printf("branches:      %d\n", stats.TotalBranches)
	fmt.Printf("contributors:  %d\n", stats.Contributors)
	fmt.Printf("lines:         +%d / -%d\n", stats.Insertions, stats.Deletions)

	if len(stats.CommitsByType) > 0 {
		fmt.Printf("\nBy type:\n")
		for commitType, count := range stats.CommitsByType {
			fmt.Printf("  %-10s %d\n", commitType, count)
		}
	}

	if len(stats.TopContributors) > 0 {
		fmt.Printf("\nTop contributors:\n")
		for _, c := range stats.TopContributors {
			fmt.Printf("  %-25s %4d commits  +%d/-%d\n", c.Name, c.Commits, c.Insertions, c.Deletions)
		}
	}

	if len(stats.TopFiles) > 0 {
		fmt.Printf("\nMost changed files:\n")
		for _, f := range stats.TopFiles {
			fmt.Printf("  %-50s %d changes\n", f.Path, f.ChangeCount)
		}
	}

	return nil
}
