package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent <project-id>",
	Short: "Show recently ingested commits",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().Int("hours", 24, "Look-back window in hours")
	recentCmd.Flags().String("branch", "", "Restrict to one branch")
	recentCmd.Flags().String("author", "", "Restrict to one author (name or email substring)")
}

func runRecent(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	hours, _ := cmd.Flags().GetInt("hours")
	branch, _ := cmd.Flags().GetString("branch")
	author, _ := cmd.Flags().GetString("author")

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	commits, err := svc.GetRecentCommits(ctx, args[0], hours, branch, author)
	if err != nil {
		return err
	}

	if len(commits) == 0 {
		fmt.Printf("No commits in the last %dh.\n", hours)
		return nil
	}

	for _, c := range commits {
		subject := c.Message
		for i, r := range subject {
			if r == '\n' {
				subject = subject[:i]
				break
			}
		}
		fmt.Printf("%s  %-8s %-20s %s\n", c.ShortHash, c.Type, c.AuthorName, subject)
	}
	fmt.Printf("\n%d commits\n", len(commits))
	return nil
}
