package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/filechange"
	"github.com/vibeboard/vibeboard/internal/gitrepo"
	"github.com/vibeboard/vibeboard/internal/models"
	"github.com/vibeboard/vibeboard/internal/storage"
)

// ErrCommitNotFound means TrackChanges was called before the commit row
// was persisted, which violates the caller ordering contract.
var ErrCommitNotFound = errors.New("commit not persisted")

// Tracker extracts and persists the per-file changes of a commit.
type Tracker struct {
	repos  RepoProvider
	store  Store
	logger *logrus.Logger
}

// NewTracker builds a file-change tracker.
func NewTracker(repos RepoProvider, store Store, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{repos: repos, store: store, logger: logger}
}

// TrackChanges extracts file changes for an already-persisted commit and
// stores them. The commit row must exist.
func (t *Tracker) TrackChanges(ctx context.Context, projectID, hash string, includeBinary bool) ([]*models.FileChange, error) {
	commitID, err := t.store.CommitIDByHash(ctx, projectID, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("commit %s in project %s: %w", hash, projectID, ErrCommitNotFound)
		}
		return nil, err
	}

	repo, err := t.repos.Repo(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rec, err := repo.Show(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}

	changes := t.buildChanges(ctx, commitID, rec, includeBinary, repo)
	for _, fc := range changes {
		if err := t.store.SaveFileChange(ctx, fc); err != nil {
			return nil, fmt.Errorf("persist change %s: %w", fc.Path, err)
		}
	}
	return changes, nil
}

// trackRecord is the pipeline-internal path: the record is already in
// hand, so no extra git invocation is needed.
func (t *Tracker) trackRecord(ctx context.Context, projectID string, commitID int64, rec *gitrepo.CommitRecord, includeBinary bool, repo Repo) (int, error) {
	if commitID == 0 {
		return 0, ErrCommitNotFound
	}

	changes := t.buildChanges(ctx, commitID, rec, includeBinary, repo)
	tracked := 0
	for _, fc := range changes {
		if err := t.store.SaveFileChange(ctx, fc); err != nil {
			return tracked, fmt.Errorf("persist change %s: %w", fc.Path, err)
		}
		tracked++
	}
	return tracked, nil
}

func (t *Tracker) buildChanges(ctx context.Context, commitID int64, rec *gitrepo.CommitRecord, includeBinary bool, repo Repo) []*models.FileChange {
	var changes []*models.FileChange

	for _, stat := range rec.Files {
		if stat.Binary && !includeBinary {
			continue
		}

		fc := &models.FileChange{
			ID:           uuid.NewString(),
			CommitID:     commitID,
			Path:         stat.Path,
			OldPath:      stat.OldPath,
			ChangeType:   deriveChangeType(stat),
			LinesAdded:   stat.Insertions,
			LinesRemoved: stat.Deletions,
			IsBinary:     stat.Binary,
			IsGenerated:  filechange.IsGenerated(stat.Path),
			Metadata:     filechange.Analyze(stat.Path, stat.Insertions, stat.Deletions),
		}

		// Size lookups are best effort and skipped entirely for
		// deletions, where the blob no longer exists at the commit.
		if stat.Binary && fc.ChangeType != models.ChangeTypeDeleted {
			if size, err := repo.BlobSize(ctx, rec.Hash, stat.Path); err == nil {
				fc.FileSize = &size
			} else {
				t.logger.WithFields(logrus.Fields{
					"commit": rec.ShortHash,
					"path":   stat.Path,
				}).Debug("blob size lookup failed")
			}
		}

		changes = append(changes, fc)
	}

	return changes
}

// deriveChangeType maps raw stats to a change type. A reported rename
// overrides the line-count heuristic.
func deriveChangeType(stat gitrepo.FileStat) models.ChangeType {
	if stat.OldPath != "" {
		return models.ChangeTypeRenamed
	}
	switch {
	case stat.Insertions > 0 && stat.Deletions > 0:
		return models.ChangeTypeModified
	case stat.Insertions > 0:
		return models.ChangeTypeAdded
	case stat.Deletions > 0:
		return models.ChangeTypeDeleted
	default:
		return models.ChangeTypeModified
	}
}
