package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeboard/vibeboard/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vibeboard.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCommit(projectID, hash string, committedAt time.Time) *models.Commit {
	return &models.Commit{
		ProjectID:      projectID,
		Hash:           hash,
		ShortHash:      hash[:7],
		Message:        "fix: close leaked repo handles",
		AuthorName:     "Dana",
		AuthorEmail:    "dana@example.com",
		AuthoredAt:     committedAt,
		CommitterName:  "Dana",
		CommitterEmail: "dana@example.com",
		CommittedAt:    committedAt,
		Branch:         "main",
		Parents:        []string{"0000000000000000000000000000000000000000"},
		FilesChanged:   1,
		Insertions:     10,
		Deletions:      2,
		Type:           models.CommitTypeFix,
	}
}

func TestSQLiteSaveCommitAssignsIDAndRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	commit := testCommit("proj-1", "aaaa111122223333aaaa111122223333aaaa1111", time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveCommit(ctx, commit))
	assert.NotZero(t, commit.ID)

	exists, err := store.CommitExists(ctx, "proj-1", commit.Hash)
	require.NoError(t, err)
	assert.True(t, exists)

	id, err := store.CommitIDByHash(ctx, "proj-1", commit.Hash)
	require.NoError(t, err)
	assert.Equal(t, commit.ID, id)

	// Same hash under another project is a distinct commit.
	other := testCommit("proj-2", commit.Hash, commit.CommittedAt)
	require.NoError(t, store.SaveCommit(ctx, other))

	dup := testCommit("proj-1", commit.Hash, commit.CommittedAt)
	assert.Error(t, store.SaveCommit(ctx, dup))

	_, err = store.CommitIDByHash(ctx, "proj-1", "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListCommitsSinceIgnoresSourceOffset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Authored at 09:00+09:00, which is midnight UTC. Stored as TEXT and
	// compared by bytes, so an unnormalized offset would leak it past a
	// 03:00 UTC cutoff.
	tokyo := time.FixedZone("JST", 9*3600)
	early := testCommit("proj-1", "1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa", time.Date(2026, 5, 4, 9, 0, 0, 0, tokyo))
	late := testCommit("proj-1", "2222bbbb2222bbbb2222bbbb2222bbbb2222bbbb", time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveCommit(ctx, early))
	require.NoError(t, store.SaveCommit(ctx, late))

	since := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	commits, err := store.ListCommits(ctx, "proj-1", CommitFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, late.Hash, commits[0].Hash)

	all, err := store.ListCommits(ctx, "proj-1", CommitFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, late.Hash, all[0].Hash, "newest first regardless of stored offset")
	assert.Equal(t, early.Hash, all[1].Hash)
	assert.True(t, all[1].CommittedAt.Equal(early.CommittedAt))
}

func TestSQLiteFileAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testCommit("proj-1", "3333cccc3333cccc3333cccc3333cccc3333cccc", time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	second := testCommit("proj-1", "4444dddd4444dddd4444dddd4444dddd4444dddd", time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC))
	second.AuthorEmail = "kai@example.com"
	require.NoError(t, store.SaveCommit(ctx, first))
	require.NoError(t, store.SaveCommit(ctx, second))

	changes := []*models.FileChange{
		{ID: "fc-1", CommitID: first.ID, Path: "internal/server/handler.go", ChangeType: models.ChangeTypeModified, LinesAdded: 40, LinesRemoved: 10},
		{ID: "fc-2", CommitID: second.ID, Path: "internal/server/handler.go", ChangeType: models.ChangeTypeModified, LinesAdded: 20, LinesRemoved: 30},
		{ID: "fc-3", CommitID: second.ID, Path: "docs/usage.md", ChangeType: models.ChangeTypeAdded, LinesAdded: 5},
	}
	for _, fc := range changes {
		require.NoError(t, store.SaveFileChange(ctx, fc))
	}

	aggregates, err := store.FileAggregates(ctx, "proj-1", nil, 2)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)

	agg := aggregates[0]
	assert.Equal(t, "internal/server/handler.go", agg.Path)
	assert.Equal(t, 2, agg.ChangeCount)
	assert.Equal(t, 2, agg.Contributors)
	assert.Equal(t, 100, agg.TotalLines)
	assert.InDelta(t, 50.0, agg.AvgChangeSize, 0.001)
	assert.True(t, agg.LastChangedAt.Equal(second.CommittedAt),
		"MAX(committed_at) comes back as TEXT and must parse to the newest commit time")

	// Since cuts off the first commit, leaving the doc path below the floor too.
	since := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	aggregates, err = store.FileAggregates(ctx, "proj-1", &since, 2)
	require.NoError(t, err)
	assert.Empty(t, aggregates)

	aggregates, err = store.FileAggregates(ctx, "proj-1", &since, 1)
	require.NoError(t, err)
	assert.Len(t, aggregates, 2)
}

func TestSQLiteSessionLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	commit := testCommit("proj-1", "5555eeee5555eeee5555eeee5555eeee5555eeee", time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveCommit(ctx, commit))

	_, err := store.SessionLinkByPair(ctx, commit.ID, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	link := &models.SessionLink{
		ID:               "link-1",
		CommitID:         commit.ID,
		SessionID:        "sess-1",
		LinkType:         "temporal",
		Confidence:       0.5,
		TimeProximityMin: 45,
	}
	require.NoError(t, store.CreateSessionLink(ctx, link))

	// One link per (commit, session) pair.
	dup := &models.SessionLink{ID: "link-2", CommitID: commit.ID, SessionID: "sess-1", LinkType: "temporal", Confidence: 0.9}
	assert.Error(t, store.CreateSessionLink(ctx, dup))

	stored, err := store.SessionLinkByPair(ctx, commit.ID, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "link-1", stored.ID)
	assert.InDelta(t, 0.5, stored.Confidence, 0.001)

	stored.Confidence = 0.7
	stored.AuthorMatch = true
	require.NoError(t, store.UpdateSessionLink(ctx, stored))

	updated, err := store.SessionLinkByPair(ctx, commit.ID, "sess-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, updated.Confidence, 0.001)
	assert.True(t, updated.AuthorMatch)

	missing := &models.SessionLink{ID: "link-3", CommitID: commit.ID, SessionID: "sess-unknown", LinkType: "temporal"}
	assert.ErrorIs(t, store.UpdateSessionLink(ctx, missing), ErrNotFound)
}

func TestSQLiteSessionsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tokyo := time.FixedZone("JST", 9*3600)
	started := time.Date(2026, 5, 4, 18, 30, 0, 0, tokyo)
	session := &models.Session{ID: "sess-1", ProjectID: "proj-1", StartedAt: started, Actor: "dana@example.com"}
	require.NoError(t, store.SaveSession(ctx, session))

	sessions, err := store.ListSessions(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].EndedAt)
	assert.True(t, sessions[0].StartedAt.Equal(started))

	ended := started.Add(2 * time.Hour)
	session.EndedAt = &ended
	require.NoError(t, store.SaveSession(ctx, session))

	sessions, err = store.ListSessions(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].EndedAt)
	assert.True(t, sessions[0].EndedAt.Equal(ended))
}
