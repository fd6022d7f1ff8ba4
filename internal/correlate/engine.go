// Package correlate links commits to development sessions by temporal
// proximity and author identity, with a monotonic confidence score.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/models"
	"github.com/vibeboard/vibeboard/internal/storage"
)

const (
	// maxProximityMin is the cutoff beyond which a commit/session pair
	// is not worth a link at all.
	maxProximityMin = 120.0

	// highConfidence marks links strong enough to surface prominently.
	highConfidence = 0.7
)

// SessionSource supplies the sessions to correlate against. Sessions are
// written by an external tracker; the engine only reads.
type SessionSource interface {
	ListSessions(ctx context.Context, projectID string) ([]models.Session, error)
}

// Store is the slice of the storage layer the engine needs.
type Store interface {
	ListCommits(ctx context.Context, projectID string, filter storage.CommitFilter) ([]*models.Commit, error)
	SessionLinkByPair(ctx context.Context, commitID int64, sessionID string) (*models.SessionLink, error)
	CreateSessionLink(ctx context.Context, link *models.SessionLink) error
	UpdateSessionLink(ctx context.Context, link *models.SessionLink) error
}

// CorrelateOptions narrows a correlation run.
type CorrelateOptions struct {
	Since               *time.Time
	ConfidenceThreshold float64
}

// CorrelationStats breaks down how the run's links scored.
type CorrelationStats struct {
	AuthorMatches int `json:"author_matches"`
	Proximate     int `json:"proximate"`
}

// CorrelationResult reports what a correlation run accomplished.
type CorrelationResult struct {
	Created        int              `json:"created"`
	Updated        int              `json:"updated"`
	HighConfidence int              `json:"high_confidence"`
	Stats          CorrelationStats `json:"stats"`
}

// Engine scores commit/session pairs and persists the links.
type Engine struct {
	sessions SessionSource
	store    Store
	matcher  AuthorMatcher
	logger   *logrus.Logger
	now      func() time.Time
}

// NewEngine builds a correlation engine. A nil matcher falls back to
// NoMatch.
func NewEngine(sessions SessionSource, store Store, matcher AuthorMatcher, logger *logrus.Logger) *Engine {
	if matcher == nil {
		matcher = NoMatch{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		sessions: sessions,
		store:    store,
		matcher:  matcher,
		logger:   logger,
		now:      time.Now,
	}
}

// Correlate scores every commit/session pair in range and persists the
// links that clear the threshold. An existing link is replaced only by a
// strictly higher confidence; links are never deleted.
func (e *Engine) Correlate(ctx context.Context, projectID string, opts CorrelateOptions) (*CorrelationResult, error) {
	sessions, err := e.sessions.ListSessions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load sessions for %s: %w", projectID, err)
	}
	commits, err := e.store.ListCommits(ctx, projectID, storage.CommitFilter{Since: opts.Since})
	if err != nil {
		return nil, fmt.Errorf("load commits for %s: %w", projectID, err)
	}

	e.logger.WithFields(logrus.Fields{
		"project":  projectID,
		"commits":  len(commits),
		"sessions": len(sessions),
	}).Info("starting session correlation")

	result := &CorrelationResult{}
	for _, commit := range commits {
		for i := range sessions {
			session := &sessions[i]
			if err := e.correlatePair(ctx, commit, session, opts.ConfidenceThreshold, result); err != nil {
				return nil, err
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"project": projectID,
		"created": result.Created,
		"updated": result.Updated,
	}).Info("session correlation finished")

	return result, nil
}

func (e *Engine) correlatePair(ctx context.Context, commit *models.Commit, session *models.Session, threshold float64, result *CorrelationResult) error {
	proximity, inside, ok := e.proximity(commit.CommittedAt, session)
	if !ok {
		return nil
	}

	authorMatch := e.matcher.Match(commit, session)
	confidence := score(proximity, authorMatch)
	if confidence < threshold {
		return nil
	}

	link := &models.SessionLink{
		ID:               uuid.NewString(),
		CommitID:         commit.ID,
		SessionID:        session.ID,
		LinkType:         "temporal",
		Confidence:       confidence,
		TimeProximityMin: proximity,
		AuthorMatch:      authorMatch,
		Metadata: models.SessionLinkMetadata{
			InsideWindow: inside,
			ComputedAt:   e.now().UTC().Format(time.RFC3339),
		},
	}

	existing, err := e.store.SessionLinkByPair(ctx, commit.ID, session.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := e.store.CreateSessionLink(ctx, link); err != nil {
			return fmt.Errorf("create link %d/%s: %w", commit.ID, session.ID, err)
		}
		result.Created++
	case err != nil:
		return fmt.Errorf("look up link %d/%s: %w", commit.ID, session.ID, err)
	case confidence > existing.Confidence:
		link.ID = existing.ID
		if err := e.store.UpdateSessionLink(ctx, link); err != nil {
			return fmt.Errorf("update link %d/%s: %w", commit.ID, session.ID, err)
		}
		result.Updated++
	default:
		// Existing link is at least as strong; keep it.
		return nil
	}

	if confidence > highConfidence {
		result.HighConfidence++
	}
	if authorMatch {
		result.Stats.AuthorMatches++
	}
	if proximity <= 60 {
		result.Stats.Proximate++
	}
	return nil
}

// proximity returns the commit's distance in minutes from the session
// window. Commits inside [start, end-or-now] score 0; beyond the cutoff
// the pair is dropped.
func (e *Engine) proximity(committedAt time.Time, session *models.Session) (minutes float64, inside, ok bool) {
	end := e.now()
	if session.EndedAt != nil {
		end = *session.EndedAt
	}

	switch {
	case committedAt.Before(session.StartedAt):
		minutes = session.StartedAt.Sub(committedAt).Minutes()
	case committedAt.After(end):
		minutes = committedAt.Sub(end).Minutes()
	default:
		return 0, true, true
	}

	if minutes > maxProximityMin {
		return 0, false, false
	}
	return minutes, false, true
}

// score assembles the confidence: a base for being in range, a proximity
// bonus, and an author bonus, clamped to 1.
func score(proximityMin float64, authorMatch bool) float64 {
	confidence := 0.3
	switch {
	case proximityMin <= 30:
		confidence += 0.4
	case proximityMin <= 60:
		confidence += 0.2
	}
	if authorMatch {
		confidence += 0.3
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
