// Package branches reconciles the repository's live branch list with the
// persisted branch rows and reports a classified view of both.
package branches

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/classify"
	"github.com/vibeboard/vibeboard/internal/gitrepo"
	"github.com/vibeboard/vibeboard/internal/models"
)

// Repo is the slice of a repository handle the analyzer needs.
type Repo interface {
	Branches(ctx context.Context, includeRemote bool) ([]gitrepo.BranchRef, error)
	CurrentBranch(ctx context.Context) (string, error)
	LastCommit(ctx context.Context, branch string) (*gitrepo.CommitRecord, error)
}

// RepoProvider resolves a project to its repository handle.
type RepoProvider interface {
	Repo(ctx context.Context, projectID string) (Repo, error)
}

// Store is the slice of the storage layer the analyzer needs.
type Store interface {
	ListBranches(ctx context.Context, projectID string) ([]*models.Branch, error)
	UpsertBranch(ctx context.Context, branch *models.Branch) error
}

// BranchOptions narrows a branch listing.
type BranchOptions struct {
	IncludeRemote bool
	IncludeStats  bool
}

// BranchReport is the reconciled branch view for a project.
type BranchReport struct {
	Branches []*models.Branch `json:"branches"`
	Current  string           `json:"current"`
	Default  string           `json:"default"`
	Total    int              `json:"total"`
}

// Analyzer builds branch reports.
type Analyzer struct {
	repos  RepoProvider
	store  Store
	logger *logrus.Logger
}

// NewAnalyzer builds a branch analyzer.
func NewAnalyzer(repos RepoProvider, store Store, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{repos: repos, store: store, logger: logger}
}

// Branches lists the repository's branches merged with what is already
// persisted. Live refs win over stale rows; rows for branches the
// repository no longer has are kept so history stays visible. Per-branch
// stat failures are logged and leave the stats empty.
func (a *Analyzer) Branches(ctx context.Context, projectID string, opts BranchOptions) (*BranchReport, error) {
	repo, err := a.repos.Repo(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve repository for %s: %w", projectID, err)
	}

	refs, err := repo.Branches(ctx, opts.IncludeRemote)
	if err != nil {
		return nil, fmt.Errorf("list branches for %s: %w", projectID, err)
	}

	persisted, err := a.store.ListBranches(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load branch rows for %s: %w", projectID, err)
	}
	byName := make(map[string]*models.Branch, len(persisted))
	for _, b := range persisted {
		byName[b.Name] = b
	}

	merged := make([]*models.Branch, 0, len(refs)+len(persisted))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		branch := a.fromRef(projectID, ref, byName[ref.Name])
		if opts.IncludeStats {
			a.attachStats(ctx, repo, branch)
		}
		if err := a.store.UpsertBranch(ctx, branch); err != nil {
			a.logger.WithFields(logrus.Fields{
				"project": projectID,
				"branch":  branch.Name,
				"error":   err,
			}).Warn("branch upsert failed")
		}
		merged = append(merged, branch)
		seen[ref.Name] = true
	}
	for _, b := range persisted {
		if !seen[b.Name] {
			merged = append(merged, b)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })

	report := &BranchReport{Branches: merged, Total: len(merged)}
	if name, ok := classify.DefaultBranch(merged); ok {
		report.Default = name
	}
	if current, err := repo.CurrentBranch(ctx); err == nil {
		report.Current = current
	} else {
		a.logger.WithField("project", projectID).WithError(err).Warn("current branch lookup failed")
	}

	return report, nil
}

// fromRef builds a branch entity from a live ref, carrying forward the
// persisted row's accumulated fields when one exists.
func (a *Analyzer) fromRef(projectID string, ref gitrepo.BranchRef, prior *models.Branch) *models.Branch {
	// Classify remote refs by their short name so "origin/release/1.2"
	// still lands in the release bucket.
	classifyName := ref.Name
	if ref.IsRemote {
		if i := strings.Index(classifyName, "/"); i >= 0 {
			classifyName = classifyName[i+1:]
		}
	}

	branch := &models.Branch{
		ProjectID: projectID,
		Name:      ref.Name,
		HeadHash:  ref.Head,
		Type:      classify.BranchType(classifyName),
		Upstream:  ref.Upstream,
		Metadata:  models.BranchMetadata{IsRemote: ref.IsRemote},
	}
	branch.IsDefault = branch.Type == models.BranchTypeMain
	branch.IsProtected = branch.IsDefault

	if prior != nil {
		branch.ID = prior.ID
		branch.CommitCount = prior.CommitCount
		branch.FirstCommitAt = prior.FirstCommitAt
		branch.LastCommitAt = prior.LastCommitAt
		branch.BaseBranch = prior.BaseBranch
		branch.MergeTarget = prior.MergeTarget
		branch.Metadata.LastAuthor = prior.Metadata.LastAuthor
		branch.Metadata.LastSubject = prior.Metadata.LastSubject
		branch.Metadata.LastIngestedAt = prior.Metadata.LastIngestedAt
	}
	return branch
}

// attachStats fills last-commit fields from the repository. Failures are
// logged and leave whatever the persisted row carried.
func (a *Analyzer) attachStats(ctx context.Context, repo Repo, branch *models.Branch) {
	rec, err := repo.LastCommit(ctx, branch.Name)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"branch": branch.Name,
			"error":  err,
		}).Debug("last commit lookup failed")
		return
	}
	committedAt := rec.CommittedAt
	branch.LastCommitAt = &committedAt
	branch.HeadHash = rec.Hash
	branch.Metadata.LastAuthor = rec.AuthorName
	branch.Metadata.LastSubject = rec.Subject
}
