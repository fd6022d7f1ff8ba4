package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeboard/vibeboard/internal/models"
)

func TestCommitRowValidation(t *testing.T) {
	_, err := commitToRow(&models.Commit{Hash: "abc"})
	assert.Error(t, err, "missing project id must fail fast")

	_, err = commitFromRow(&commitRow{ID: 7, ProjectID: "p"})
	assert.Error(t, err, "missing hash must fail fast")
}

func TestCommitRowCarriesMetadata(t *testing.T) {
	commit := &models.Commit{
		ProjectID: "proj",
		Hash:      "abc123",
		Parents:   []string{"p1", "p2"},
		IsMerge:   true,
		Type:      models.CommitTypeFix,
		Tags:      []string{"breaking"},
		Metadata: models.CommitMetadata{
			Message: models.MessageAnalysis{Breaking: true, Tickets: []string{"#9"}},
			Merge:   &models.MergeInfo{SourceBranch: "feature/x", Strategy: "merge"},
		},
	}

	row, err := commitToRow(commit)
	require.NoError(t, err)

	back, err := commitFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, commit.Parents, back.Parents)
	assert.True(t, back.Metadata.Message.Breaking)
	require.NotNil(t, back.Metadata.Merge)
	assert.Equal(t, "feature/x", back.Metadata.Merge.SourceBranch)
}

func TestFileChangeRowValidation(t *testing.T) {
	_, err := fileChangeToRow(&models.FileChange{ID: "x", Path: "a.go"})
	assert.Error(t, err, "missing commit id must fail fast")
}

func TestSessionLinkRowValidation(t *testing.T) {
	_, err := sessionLinkToRow(&models.SessionLink{ID: "x", CommitID: 1})
	assert.Error(t, err, "missing session id must fail fast")
}
