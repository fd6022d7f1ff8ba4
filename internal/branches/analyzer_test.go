package branches

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeboard/vibeboard/internal/gitrepo"
	"github.com/vibeboard/vibeboard/internal/models"
)

type fakeRepo struct {
	refs    []gitrepo.BranchRef
	current string
	last    map[string]*gitrepo.CommitRecord
}

func (r *fakeRepo) Branches(_ context.Context, includeRemote bool) ([]gitrepo.BranchRef, error) {
	if includeRemote {
		return r.refs, nil
	}
	local := make([]gitrepo.BranchRef, 0, len(r.refs))
	for _, ref := range r.refs {
		if !ref.IsRemote {
			local = append(local, ref)
		}
	}
	return local, nil
}

func (r *fakeRepo) CurrentBranch(_ context.Context) (string, error) {
	return r.current, nil
}

func (r *fakeRepo) LastCommit(_ context.Context, branch string) (*gitrepo.CommitRecord, error) {
	if rec, ok := r.last[branch]; ok {
		return rec, nil
	}
	return nil, errors.New("no commits")
}

type fakeProvider struct{ repo *fakeRepo }

func (p *fakeProvider) Repo(_ context.Context, _ string) (Repo, error) {
	return p.repo, nil
}

type fakeStore struct {
	rows    map[string]*models.Branch
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.Branch)}
}

func (s *fakeStore) ListBranches(_ context.Context, _ string) ([]*models.Branch, error) {
	out := make([]*models.Branch, 0, len(s.rows))
	for _, b := range s.rows {
		out = append(out, b)
	}
	return out, nil
}

func (s *fakeStore) UpsertBranch(_ context.Context, branch *models.Branch) error {
	s.upserts++
	s.rows[branch.Name] = branch
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRepo() *fakeRepo {
	return &fakeRepo{
		refs: []gitrepo.BranchRef{
			{Name: "main", Head: "aaa111"},
			{Name: "feature/billing", Head: "bbb222", Upstream: "origin/feature/billing"},
			{Name: "origin/release/1.2", Head: "ccc333", IsRemote: true},
		},
		current: "feature/billing",
		last: map[string]*gitrepo.CommitRecord{
			"main": {
				Hash:        "aaa111",
				Subject:     "fix: close idle pool connections",
				AuthorName:  "Dana",
				CommittedAt: time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestBranchesClassifiesAndMerges(t *testing.T) {
	repo := testRepo()
	store := newFakeStore()
	analyzer := NewAnalyzer(&fakeProvider{repo: repo}, store, quietLogger())

	report, err := analyzer.Branches(context.Background(), "proj-1", BranchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, "main", report.Default)
	assert.Equal(t, "feature/billing", report.Current)
	assert.Equal(t, 2, store.upserts)

	byName := make(map[string]*models.Branch)
	for _, b := range report.Branches {
		byName[b.Name] = b
	}
	require.Contains(t, byName, "main")
	assert.Equal(t, models.BranchTypeMain, byName["main"].Type)
	assert.True(t, byName["main"].IsDefault)
	assert.Equal(t, models.BranchTypeFeature, byName["feature/billing"].Type)
	assert.False(t, byName["feature/billing"].IsDefault)
	assert.Equal(t, "origin/feature/billing", byName["feature/billing"].Upstream)
}

func TestBranchesIncludeRemote(t *testing.T) {
	repo := testRepo()
	analyzer := NewAnalyzer(&fakeProvider{repo: repo}, newFakeStore(), quietLogger())

	report, err := analyzer.Branches(context.Background(), "proj-1", BranchOptions{IncludeRemote: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)

	var remote *models.Branch
	for _, b := range report.Branches {
		if b.Name == "origin/release/1.2" {
			remote = b
		}
	}
	require.NotNil(t, remote)
	assert.True(t, remote.Metadata.IsRemote)
	assert.Equal(t, models.BranchTypeRelease, remote.Type)
}

func TestBranchesStatsBestEffort(t *testing.T) {
	repo := testRepo()
	store := newFakeStore()
	analyzer := NewAnalyzer(&fakeProvider{repo: repo}, store, quietLogger())

	report, err := analyzer.Branches(context.Background(), "proj-1", BranchOptions{IncludeStats: true})
	require.NoError(t, err)

	byName := make(map[string]*models.Branch)
	for _, b := range report.Branches {
		byName[b.Name] = b
	}

	// main has a last commit, feature/billing's lookup fails and stays
	// empty rather than failing the report.
	main := byName["main"]
	require.NotNil(t, main.LastCommitAt)
	assert.Equal(t, "Dana", main.Metadata.LastAuthor)
	assert.Equal(t, "fix: close idle pool connections", main.Metadata.LastSubject)
	assert.Nil(t, byName["feature/billing"].LastCommitAt)
}

func TestBranchesKeepsStaleRows(t *testing.T) {
	repo := testRepo()
	store := newFakeStore()
	gone := &models.Branch{
		ProjectID: "proj-1",
		Name:      "hotfix/old-incident",
		HeadHash:  "ddd444",
		Type:      models.BranchTypeHotfix,
	}
	store.rows[gone.Name] = gone

	analyzer := NewAnalyzer(&fakeProvider{repo: repo}, store, quietLogger())
	report, err := analyzer.Branches(context.Background(), "proj-1", BranchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	names := make([]string, 0, len(report.Branches))
	for _, b := range report.Branches {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "hotfix/old-incident")
}
