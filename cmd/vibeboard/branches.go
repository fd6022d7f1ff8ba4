package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/internal/branches"
)

var branchesCmd = &cobra.Command{
	Use:   "branches <project-id>",
	Short: "List and classify a project's branches",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranches,
}

func init() {
	branchesCmd.Flags().Bool("remote", false, "Include remote-tracking branches")
	branchesCmd.Flags().Bool("stats", false, "Attach last-commit summaries (slower)")
}

func runBranches(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	includeRemote, _ := cmd.Flags().GetBool("remote")
	includeStats, _ := cmd.Flags().GetBool("stats")

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.GetBranches(ctx, args[0], branches.BranchOptions{
		IncludeRemote: includeRemote,
		IncludeStats:  includeStats,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d branches (current: %s, default: %s)\n\n", report.Total, report.Current, report.Default)
	for _, b := range report.Branches {
		marker := " "
		if b.Name == report.Current {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-40s %-8s %s", marker, b.Name, b.Type, shortHash(b.HeadHash))
		if includeStats && b.Metadata.LastSubject != "" {
			line += fmt.Sprintf("  %s: %s", b.Metadata.LastAuthor, b.Metadata.LastSubject)
		}
		fmt.Println(line)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
