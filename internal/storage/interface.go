// Package storage persists commits, branches, file changes, sessions, and
// session links behind a Store interface with SQLite and Postgres
// implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vibeboard/vibeboard/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// CommitFilter narrows a commit listing.
type CommitFilter struct {
	Since  *time.Time
	Branch string
	Author string // matches author name or email
	Limit  int
}

// Store defines the storage interface.
type Store interface {
	// Commit operations. SaveCommit assigns the generated id.
	SaveCommit(ctx context.Context, commit *models.Commit) error
	CommitExists(ctx context.Context, projectID, hash string) (bool, error)
	CommitIDByHash(ctx context.Context, projectID, hash string) (int64, error)
	ListCommits(ctx context.Context, projectID string, filter CommitFilter) ([]*models.Commit, error)

	// Branch operations, upsert keyed by (project, name).
	UpsertBranch(ctx context.Context, branch *models.Branch) error
	ListBranches(ctx context.Context, projectID string) ([]*models.Branch, error)

	// File change operations.
	SaveFileChange(ctx context.Context, fc *models.FileChange) error
	ListFileChanges(ctx context.Context, commitID int64) ([]*models.FileChange, error)
	FileAggregates(ctx context.Context, projectID string, since *time.Time, minChanges int) ([]models.FileAggregate, error)

	// Session link operations. Links are unique per (commit, session).
	SessionLinkByPair(ctx context.Context, commitID int64, sessionID string) (*models.SessionLink, error)
	CreateSessionLink(ctx context.Context, link *models.SessionLink) error
	UpdateSessionLink(ctx context.Context, link *models.SessionLink) error
	ListSessionLinks(ctx context.Context, projectID string) ([]*models.SessionLink, error)

	// Session reads. Sessions are written by the session tracker; this
	// layer only shares the table. SaveSession exists for that writer
	// and for fixtures.
	ListSessions(ctx context.Context, projectID string) ([]models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error

	Close() error
}
