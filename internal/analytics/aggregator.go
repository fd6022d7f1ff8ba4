// Package analytics rolls ingested commits and file changes up into
// project-level statistics and hotspot rankings.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/filechange"
	"github.com/vibeboard/vibeboard/internal/models"
	"github.com/vibeboard/vibeboard/internal/storage"
)

const (
	// DefaultMinChanges filters out paths touched too rarely to rank.
	DefaultMinChanges = 3

	// DefaultLimit bounds hotspot and top-N listings.
	DefaultLimit = 10
)

// Store is the slice of the storage layer the aggregator needs.
type Store interface {
	ListCommits(ctx context.Context, projectID string, filter storage.CommitFilter) ([]*models.Commit, error)
	ListBranches(ctx context.Context, projectID string) ([]*models.Branch, error)
	FileAggregates(ctx context.Context, projectID string, since *time.Time, minChanges int) ([]models.FileAggregate, error)
}

// HotspotOptions narrows a hotspot query.
type HotspotOptions struct {
	Since      *time.Time
	MinChanges int
	Limit      int
}

// ProjectStats is the project-level activity summary.
type ProjectStats struct {
	ProjectID       string                    `json:"project_id"`
	TotalCommits    int                       `json:"total_commits"`
	TotalBranches   int                       `json:"total_branches"`
	Contributors    int                       `json:"contributors"`
	CommitsLast7d   int                       `json:"commits_last_7d"`
	CommitsLast30d  int                       `json:"commits_last_30d"`
	Insertions      int                       `json:"insertions"`
	Deletions       int                       `json:"deletions"`
	CommitsByType   map[models.CommitType]int `json:"commits_by_type"`
	TopFiles        []models.FileAggregate    `json:"top_files"`
	TopContributors []models.ContributorStat  `json:"top_contributors"`
}

// Aggregator computes analytics from the persisted history.
type Aggregator struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewAggregator builds an analytics aggregator.
func NewAggregator(store Store, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{store: store, logger: logger, now: time.Now}
}

// ProjectStats summarizes a project's commit activity: totals, recency
// windows, and top files and contributors.
func (a *Aggregator) ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error) {
	commits, err := a.store.ListCommits(ctx, projectID, storage.CommitFilter{})
	if err != nil {
		return nil, fmt.Errorf("load commits for %s: %w", projectID, err)
	}
	branches, err := a.store.ListBranches(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load branches for %s: %w", projectID, err)
	}

	now := a.now()
	week := now.AddDate(0, 0, -7)
	month := now.AddDate(0, 0, -30)

	stats := &ProjectStats{
		ProjectID:     projectID,
		TotalCommits:  len(commits),
		TotalBranches: len(branches),
		CommitsByType: make(map[models.CommitType]int),
	}

	byAuthor := make(map[string]*models.ContributorStat)
	for _, commit := range commits {
		stats.Insertions += commit.Insertions
		stats.Deletions += commit.Deletions
		stats.CommitsByType[commit.Type]++
		if commit.CommittedAt.After(week) {
			stats.CommitsLast7d++
		}
		if commit.CommittedAt.After(month) {
			stats.CommitsLast30d++
		}

		contrib, ok := byAuthor[commit.AuthorEmail]
		if !ok {
			contrib = &models.ContributorStat{Name: commit.AuthorName, Email: commit.AuthorEmail}
			byAuthor[commit.AuthorEmail] = contrib
		}
		contrib.Commits++
		contrib.Insertions += commit.Insertions
		contrib.Deletions += commit.Deletions
		if commit.CommittedAt.After(contrib.LastCommit) {
			contrib.LastCommit = commit.CommittedAt
		}
	}
	stats.Contributors = len(byAuthor)

	stats.TopContributors = make([]models.ContributorStat, 0, len(byAuthor))
	for _, contrib := range byAuthor {
		stats.TopContributors = append(stats.TopContributors, *contrib)
	}
	sort.Slice(stats.TopContributors, func(i, j int) bool {
		a, b := stats.TopContributors[i], stats.TopContributors[j]
		if a.Commits != b.Commits {
			return a.Commits > b.Commits
		}
		return a.Email < b.Email
	})
	if len(stats.TopContributors) > DefaultLimit {
		stats.TopContributors = stats.TopContributors[:DefaultLimit]
	}

	aggregates, err := a.store.FileAggregates(ctx, projectID, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("load file aggregates for %s: %w", projectID, err)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].ChangeCount != aggregates[j].ChangeCount {
			return aggregates[i].ChangeCount > aggregates[j].ChangeCount
		}
		return aggregates[i].Path < aggregates[j].Path
	})
	if len(aggregates) > DefaultLimit {
		aggregates = aggregates[:DefaultLimit]
	}
	stats.TopFiles = aggregates

	return stats, nil
}

// Hotspots ranks frequently changed files by risk. Paths with fewer than
// MinChanges changes are dropped before scoring.
func (a *Aggregator) Hotspots(ctx context.Context, projectID string, opts HotspotOptions) ([]models.Hotspot, error) {
	minChanges := opts.MinChanges
	if minChanges <= 0 {
		minChanges = DefaultMinChanges
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	aggregates, err := a.store.FileAggregates(ctx, projectID, opts.Since, minChanges)
	if err != nil {
		return nil, fmt.Errorf("load file aggregates for %s: %w", projectID, err)
	}

	hotspots := make([]models.Hotspot, 0, len(aggregates))
	for _, agg := range aggregates {
		hotspots = append(hotspots, models.Hotspot{
			Path:          agg.Path,
			Score:         filechange.RiskScore(agg.ChangeCount, agg.Contributors, agg.AvgChangeSize, agg.LastChangedAt),
			ChangeCount:   agg.ChangeCount,
			Contributors:  agg.Contributors,
			AvgChangeSize: agg.AvgChangeSize,
			LastChangedAt: agg.LastChangedAt,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		return hotspots[i].ChangeCount > hotspots[j].ChangeCount
	})
	if len(hotspots) > limit {
		hotspots = hotspots[:limit]
	}

	a.logger.WithFields(logrus.Fields{
		"project":  projectID,
		"hotspots": len(hotspots),
	}).Debug("hotspot ranking computed")

	return hotspots, nil
}
