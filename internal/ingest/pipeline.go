// Package ingest walks a repository's commit history in batches,
// classifies each commit, filters dependency noise, and persists commits
// with their file changes. Per-item failures degrade or skip; they never
// abort the run.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vibeboard/vibeboard/internal/classify"
	"github.com/vibeboard/vibeboard/internal/gitrepo"
	"github.com/vibeboard/vibeboard/internal/models"
)

// DefaultBatchSize bounds how many commits are processed per batch.
const DefaultBatchSize = 50

// Repo is the slice of a repository handle the pipeline needs.
type Repo interface {
	Log(ctx context.Context, opts gitrepo.LogOptions) ([]gitrepo.CommitRecord, error)
	Show(ctx context.Context, hash string) (*gitrepo.CommitRecord, error)
	ContainingBranches(ctx context.Context, hash string) ([]string, error)
	BlobSize(ctx context.Context, hash, path string) (int64, error)
}

// RepoProvider resolves a project to its repository handle.
type RepoProvider interface {
	Repo(ctx context.Context, projectID string) (Repo, error)
}

// Store is the slice of the storage layer the pipeline needs.
type Store interface {
	SaveCommit(ctx context.Context, commit *models.Commit) error
	CommitExists(ctx context.Context, projectID, hash string) (bool, error)
	CommitIDByHash(ctx context.Context, projectID, hash string) (int64, error)
	UpsertBranch(ctx context.Context, branch *models.Branch) error
	SaveFileChange(ctx context.Context, fc *models.FileChange) error
}

// Options narrows an ingestion run.
type Options struct {
	Limit         int
	Since         *time.Time
	Branch        string
	IncludeBinary bool
}

// Result reports what an ingestion run accomplished. Errors holds
// per-item and per-batch failures; a non-empty list does not imply the
// run failed.
type Result struct {
	Collected          int      `json:"collected"`
	Filtered           int      `json:"filtered"`
	Skipped            int      `json:"skipped"`
	BranchesUpdated    int      `json:"branches_updated"`
	FileChangesTracked int      `json:"file_changes_tracked"`
	Errors             []string `json:"errors,omitempty"`
}

// Pipeline orchestrates batched commit ingestion for a project.
type Pipeline struct {
	repos     RepoProvider
	store     Store
	tracker   *Tracker
	logger    *logrus.Logger
	batchSize int
}

// NewPipeline builds an ingestion pipeline.
func NewPipeline(repos RepoProvider, store Store, logger *logrus.Logger, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		repos:     repos,
		store:     store,
		tracker:   NewTracker(repos, store, logger),
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tracker exposes the pipeline's file-change tracker for standalone use.
func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Ingest walks up to opts.Limit commits in descending recency order and
// persists the ones that pass the dependency-noise filter. Configuration
// errors (unresolvable repository) are fatal; everything else is
// recovered per item and reported in the result.
func (p *Pipeline) Ingest(ctx context.Context, projectID string, opts Options) (*Result, error) {
	repo, err := p.repos.Repo(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve repository for %s: %w", projectID, err)
	}

	records, err := repo.Log(ctx, gitrepo.LogOptions{
		Limit:  opts.Limit,
		Since:  opts.Since,
		Branch: opts.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", projectID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"project": projectID,
		"commits": len(records),
		"batch":   p.batchSize,
	}).Info("starting commit ingestion")

	result := &Result{}
	heads := make(map[string]*gitrepo.CommitRecord) // primary branch -> newest commit seen

	for start := 0; start < len(records); start += p.batchSize {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, itemError("batch", fmt.Sprintf("%d", start/p.batchSize), ctx.Err()))
			break
		}

		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		p.processBatch(ctx, projectID, repo, records[start:end], opts, result, heads)
	}

	result.BranchesUpdated = p.updateBranches(ctx, projectID, heads, result)

	p.logger.WithFields(logrus.Fields{
		"project":   projectID,
		"collected": result.Collected,
		"filtered":  result.Filtered,
		"skipped":   result.Skipped,
		"files":     result.FileChangesTracked,
		"errors":    len(result.Errors),
	}).Info("commit ingestion finished")

	return result, nil
}

// processBatch runs one batch, isolating any panic so later batches
// still run.
func (p *Pipeline) processBatch(ctx context.Context, projectID string, repo Repo, batch []gitrepo.CommitRecord, opts Options, result *Result, heads map[string]*gitrepo.CommitRecord) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch panic: %v", r))
		}
	}()

	for i := range batch {
		p.processCommit(ctx, projectID, repo, &batch[i], opts, result, heads)
	}
}

func (p *Pipeline) processCommit(ctx context.Context, projectID string, repo Repo, rec *gitrepo.CommitRecord, opts Options, result *Result, heads map[string]*gitrepo.CommitRecord) {
	exists, err := p.store.CommitExists(ctx, projectID, rec.Hash)
	if err != nil {
		result.Errors = append(result.Errors, itemError("check", rec.Hash, err))
		return
	}
	if exists {
		result.Skipped++
		return
	}

	commit := p.extract(ctx, projectID, repo, rec)

	paths := make([]string, 0, len(rec.Files))
	for _, f := range rec.Files {
		paths = append(paths, f.Path)
	}
	if rule, noisy := dependencyNoise(noiseInput{
		Insertions:   commit.Insertions,
		FilesChanged: commit.FilesChanged,
		Paths:        paths,
		Message:      commit.Message,
	}); noisy {
		p.logger.WithFields(logrus.Fields{
			"commit": rec.ShortHash,
			"rule":   rule,
		}).Debug("dependency-noise commit filtered")
		result.Filtered++
		return
	}

	if err := p.store.SaveCommit(ctx, commit); err != nil {
		result.Errors = append(result.Errors, itemError("persist", rec.Hash, err))
		return
	}
	result.Collected++

	if existing, ok := heads[commit.Branch]; !ok || rec.CommittedAt.After(existing.CommittedAt) {
		heads[commit.Branch] = rec
	}

	tracked, err := p.tracker.trackRecord(ctx, projectID, commit.ID, rec, opts.IncludeBinary, repo)
	if err != nil {
		result.Errors = append(result.Errors, itemError("track", rec.Hash, err))
		return
	}
	result.FileChangesTracked += tracked
}

// extract builds the commit entity. A failed branch lookup degrades to
// "main"; stats come straight from the parsed record.
func (p *Pipeline) extract(ctx context.Context, projectID string, repo Repo, rec *gitrepo.CommitRecord) *models.Commit {
	insertions, deletions := 0, 0
	for _, f := range rec.Files {
		insertions += f.Insertions
		deletions += f.Deletions
	}

	analysis := classify.AnalyzeMessage(rec.Subject, rec.Body)
	isMerge := len(rec.Parents) > 1

	primary := "main"
	containing, err := repo.ContainingBranches(ctx, rec.Hash)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"commit": rec.ShortHash,
			"error":  err,
		}).Warn("branch lookup failed, defaulting to main")
	} else if len(containing) > 0 {
		primary = containing[0]
	}

	commit := &models.Commit{
		ProjectID:      projectID,
		Hash:           rec.Hash,
		ShortHash:      rec.ShortHash,
		Message:        rec.Message(),
		AuthorName:     rec.AuthorName,
		AuthorEmail:    rec.AuthorEmail,
		AuthoredAt:     rec.AuthoredAt,
		CommitterName:  rec.CommitterName,
		CommitterEmail: rec.CommitterEmail,
		CommittedAt:    rec.CommittedAt,
		Branch:         primary,
		Parents:        rec.Parents,
		IsMerge:        isMerge,
		FilesChanged:   len(rec.Files),
		Insertions:     insertions,
		Deletions:      deletions,
		Type:           classify.CommitType(rec.Subject),
		Tags:           analysis.Tags,
		Metadata: models.CommitMetadata{
			Message: analysis,
			Stats: models.RawStats{
				FilesChanged: len(rec.Files),
				Insertions:   insertions,
				Deletions:    deletions,
			},
		},
	}

	if isMerge {
		commit.Type = models.CommitTypeMerge
		commit.Metadata.Merge = p.mergeInfo(ctx, repo, rec)
	}

	return commit
}

// mergeInfo infers source and target branches from each parent's
// containing branches. Lookup failures leave fields empty.
func (p *Pipeline) mergeInfo(ctx context.Context, repo Repo, rec *gitrepo.CommitRecord) *models.MergeInfo {
	info := &models.MergeInfo{Strategy: mergeStrategy(rec.Subject)}

	if len(rec.Parents) > 0 {
		if branches, err := repo.ContainingBranches(ctx, rec.Parents[0]); err == nil && len(branches) > 0 {
			info.TargetBranch = branches[0]
		}
	}
	if len(rec.Parents) > 1 {
		if branches, err := repo.ContainingBranches(ctx, rec.Parents[1]); err == nil && len(branches) > 0 {
			info.SourceBranch = branches[0]
		}
	}
	return info
}

// updateBranches upserts a branch row for every primary branch seen
// during the run. Returns how many rows were written.
func (p *Pipeline) updateBranches(ctx context.Context, projectID string, heads map[string]*gitrepo.CommitRecord, result *Result) int {
	updated := 0
	for name, head := range heads {
		committedAt := head.CommittedAt
		branch := &models.Branch{
			ProjectID:    projectID,
			Name:         name,
			HeadHash:     head.Hash,
			Type:         classify.BranchType(name),
			LastCommitAt: &committedAt,
			Metadata: models.BranchMetadata{
				LastAuthor:     head.AuthorName,
				LastSubject:    head.Subject,
				LastIngestedAt: time.Now().UTC().Format(time.RFC3339),
			},
		}
		if err := p.store.UpsertBranch(ctx, branch); err != nil {
			result.Errors = append(result.Errors, itemError("branch", name, err))
			continue
		}
		updated++
	}
	return updated
}

// IngestAll runs ingestion for several projects concurrently. Each
// project holds its own repository handle, so runs are independent.
func (p *Pipeline) IngestAll(ctx context.Context, projectIDs []string, opts Options) (map[string]*Result, error) {
	results := make(map[string]*Result, len(projectIDs))
	var mu sync.Mutex
	var g errgroup.Group

	for _, projectID := range projectIDs {
		projectID := projectID
		g.Go(func() error {
			result, err := p.Ingest(ctx, projectID, opts)
			if err != nil {
				return fmt.Errorf("project %s: %w", projectID, err)
			}
			mu.Lock()
			results[projectID] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
