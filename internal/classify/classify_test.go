package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeboard/vibeboard/internal/models"
)

func TestCommitType(t *testing.T) {
	tests := []struct {
		message string
		want    models.CommitType
	}{
		{"fix(auth): handle null token", models.CommitTypeFix},
		{"feat: add session export", models.CommitTypeFeature},
		{"feat(api)!: drop v1 endpoints", models.CommitTypeFeature},
		{"docs: update readme", models.CommitTypeDocs},
		{"style(ui): reformat components", models.CommitTypeStyle},
		{"refactor: split pipeline stages", models.CommitTypeRefactor},
		{"perf: cache branch lookups", models.CommitTypeRefactor},
		{"test: cover rename parsing", models.CommitTypeTest},
		{"chore: bump deps", models.CommitTypeChore},
		{"build: switch to make", models.CommitTypeChore},
		{"ci: add lint job", models.CommitTypeChore},
		{"revert: undo session purge", models.CommitTypeFix},
		// Non-conventional prefixes fall through the rule table.
		{"fix bug in parser", models.CommitTypeFix},
		{"hotfix for prod crash", models.CommitTypeFix},
		{"Merge branch 'feature/x' into main", models.CommitTypeMerge},
		{"docs tweaks", models.CommitTypeDocs},
		{"update deps to latest", models.CommitTypeChore},
		{"add login page", models.CommitTypeFeature},
		{"implement the widget", models.CommitTypeFeature},
		{"", models.CommitTypeFeature},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CommitType(tt.message), "message: %q", tt.message)
	}
}

func TestCommitTypeDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.Equal(t, models.CommitTypeFix, CommitType("fix(auth): handle null token"))
	}
}

func TestAnalyzeMessage(t *testing.T) {
	t.Run("conventional with scope", func(t *testing.T) {
		a := AnalyzeMessage("feat(ingest): batch commits", "")
		assert.True(t, a.IsConventional)
		assert.Equal(t, "feat", a.ConvType)
		assert.Equal(t, "ingest", a.Scope)
		assert.False(t, a.Breaking)
		assert.Contains(t, a.Tags, "conventional")
	})

	t.Run("breaking via bang", func(t *testing.T) {
		a := AnalyzeMessage("feat(api)!: drop v1", "")
		assert.True(t, a.Breaking)
		assert.Contains(t, a.Tags, "breaking")
	})

	t.Run("breaking via body", func(t *testing.T) {
		a := AnalyzeMessage("refactor: rework storage", "BREAKING CHANGE: schema v2")
		assert.True(t, a.Breaking)
	})

	t.Run("tickets deduplicated", func(t *testing.T) {
		a := AnalyzeMessage("fix: resolve crash, closes #42", "see #42 and PROJ-7 and #13")
		assert.Equal(t, []string{"#42", "#13", "PROJ-7"}, a.Tickets)
		assert.Contains(t, a.Tags, "references-ticket")
	})

	t.Run("co-authors", func(t *testing.T) {
		body := "Co-authored-by: Dana Ortiz <dana@example.com>\nCo-authored-by: Kim Lee <kim@example.com>"
		a := AnalyzeMessage("feat: pair work", body)
		require.Len(t, a.CoAuthors, 2)
		assert.Equal(t, "Dana Ortiz", a.CoAuthors[0].Name)
		assert.Equal(t, "kim@example.com", a.CoAuthors[1].Email)
		assert.Contains(t, a.Tags, "collaborative")
	})

	t.Run("plain message has no tags", func(t *testing.T) {
		a := AnalyzeMessage("fix bug", "")
		assert.False(t, a.IsConventional)
		assert.Empty(t, a.Tags)
	})
}

func TestBranchType(t *testing.T) {
	tests := []struct {
		name string
		want models.BranchType
	}{
		{"main", models.BranchTypeMain},
		{"master", models.BranchTypeMain},
		{"feature/login", models.BranchTypeFeature},
		{"feat/login", models.BranchTypeFeature},
		{"hotfix/crash", models.BranchTypeHotfix},
		{"fix/crash", models.BranchTypeHotfix},
		{"release/1.2.0", models.BranchTypeRelease},
		{"develop", models.BranchTypeDevelop},
		{"random-branch", models.BranchTypeFeature},
		{"mainline", models.BranchTypeFeature},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BranchType(tt.name), "branch: %q", tt.name)
	}
}

func TestDefaultBranch(t *testing.T) {
	t.Run("explicit flag wins", func(t *testing.T) {
		branches := []*models.Branch{
			{Name: "main"},
			{Name: "trunk", IsDefault: true},
		}
		name, ok := DefaultBranch(branches)
		require.True(t, ok)
		assert.Equal(t, "trunk", name)
	})

	t.Run("main preferred over master", func(t *testing.T) {
		branches := []*models.Branch{{Name: "master"}, {Name: "main"}}
		name, ok := DefaultBranch(branches)
		require.True(t, ok)
		assert.Equal(t, "main", name)
	})

	t.Run("master fallback", func(t *testing.T) {
		branches := []*models.Branch{{Name: "dev"}, {Name: "master"}}
		name, ok := DefaultBranch(branches)
		require.True(t, ok)
		assert.Equal(t, "master", name)
	})

	t.Run("no candidate", func(t *testing.T) {
		_, ok := DefaultBranch([]*models.Branch{{Name: "dev"}})
		assert.False(t, ok)
	})
}
