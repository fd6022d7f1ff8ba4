package gitrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fields ...string) string {
	out := "\x1e"
	for _, f := range fields {
		out += f + "\x1f"
	}
	return out
}

func TestParseLog(t *testing.T) {
	output := record(
		"a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2", "a1b2c3d",
		"Dana Ortiz", "dana@example.com", "2026-08-01T10:05:00+00:00",
		"Dana Ortiz", "dana@example.com", "2026-08-01T10:05:30+00:00",
		"f0f0f0f0",
		"feat(ingest): batch commits\n\nAdds batched history retrieval.\n",
	) + "\n12\t3\tinternal/ingest/pipeline.go\n5\t0\tinternal/ingest/pipeline_test.go\n"

	records, err := parseLog(output)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2", rec.Hash)
	assert.Equal(t, "a1b2c3d", rec.ShortHash)
	assert.Equal(t, "Dana Ortiz", rec.AuthorName)
	assert.Equal(t, "dana@example.com", rec.AuthorEmail)
	assert.Equal(t, []string{"f0f0f0f0"}, rec.Parents)
	assert.Equal(t, "feat(ingest): batch commits", rec.Subject)
	assert.Equal(t, "Adds batched history retrieval.", rec.Body)
	require.Len(t, rec.Files, 2)
	assert.Equal(t, "internal/ingest/pipeline.go", rec.Files[0].Path)
	assert.Equal(t, 12, rec.Files[0].Insertions)
	assert.Equal(t, 3, rec.Files[0].Deletions)
}

func TestParseLogMergeParents(t *testing.T) {
	output := record(
		"deadbeef", "deadbee",
		"Kim Lee", "kim@example.com", "2026-08-02T09:00:00Z",
		"Kim Lee", "kim@example.com", "2026-08-02T09:00:00Z",
		"aaaa1111 bbbb2222",
		"Merge branch 'feature/login' into main",
	)

	records, err := parseLog(output)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"aaaa1111", "bbbb2222"}, records[0].Parents)
	assert.Empty(t, records[0].Files)
}

func TestParseLogMultipleRecords(t *testing.T) {
	output := record(
		"c1", "c1", "A", "a@x", "2026-08-01T10:00:00Z",
		"A", "a@x", "2026-08-01T10:00:00Z", "", "first",
	) + "\n1\t1\ta.go\n" + record(
		"c2", "c2", "B", "b@x", "2026-08-01T11:00:00Z",
		"B", "b@x", "2026-08-01T11:00:00Z", "c1", "second",
	) + "\n2\t0\tb.go\n"

	records, err := parseLog(output)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].Hash)
	assert.Empty(t, records[0].Parents)
	assert.Equal(t, "c2", records[1].Hash)
}

func TestParseNumstatBinary(t *testing.T) {
	stats := parseNumstat("-\t-\tassets/logo.png\n10\t2\tmain.go\n")
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Binary)
	assert.Equal(t, "assets/logo.png", stats[0].Path)
	assert.False(t, stats[1].Binary)
}

func TestParseRename(t *testing.T) {
	tests := []struct {
		raw, path, old string
	}{
		{"old.go => new.go", "new.go", "old.go"},
		{"src/{old => new}/file.go", "src/new/file.go", "src/old/file.go"},
		{"src/{ => core}/main.go", "src/core/main.go", "src/main.go"},
		{"plain/path.go", "plain/path.go", ""},
	}
	for _, tt := range tests {
		path, old := parseRename(tt.raw)
		assert.Equal(t, tt.path, path, "raw: %q", tt.raw)
		assert.Equal(t, tt.old, old, "raw: %q", tt.raw)
	}
}

func TestMessage(t *testing.T) {
	rec := CommitRecord{Subject: "fix: crash", Body: "stack trace attached"}
	assert.Equal(t, "fix: crash\n\nstack trace attached", rec.Message())

	rec = CommitRecord{Subject: "fix: crash"}
	assert.Equal(t, "fix: crash", rec.Message())
}
