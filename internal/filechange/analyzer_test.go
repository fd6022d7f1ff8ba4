package filechange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		path string
		want Category
	}{
		{"internal/ingest/pipeline.go", CategorySource},
		{"web/src/App.tsx", CategoryWeb},
		{"config/app.yaml", CategoryConfig},
		{"README.md", CategoryDocumentation},
		{"data/export.csv", CategoryData},
		{"assets/logo.png", CategoryImage},
		{"release.tar", CategoryArchive},
		{"bin/tool.exe", CategoryExecutable},
		{"LICENSE", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.path), "path: %q", tt.path)
	}
}

func TestChangeMagnitude(t *testing.T) {
	tests := []struct {
		ins, del int
		want     Magnitude
	}{
		{0, 0, MagnitudeNone},
		{3, 2, MagnitudeMinimal},
		{5, 0, MagnitudeMinimal},
		{20, 5, MagnitudeSmall},
		{60, 40, MagnitudeMedium},
		{300, 100, MagnitudeLarge},
		{400, 101, MagnitudeMassive},
		{10000, 0, MagnitudeMassive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChangeMagnitude(tt.ins, tt.del), "ins=%d del=%d", tt.ins, tt.del)
	}
}

func TestIsGenerated(t *testing.T) {
	generated := []string{
		"package-lock.json",
		"frontend/yarn.lock",
		"go.sum",
		"node_modules/react/index.js",
		"vendor/github.com/lib/pq/conn.go",
		"static/app.min.js",
		"dist/bundle.js",
		"api/service.pb.go",
	}
	for _, p := range generated {
		assert.True(t, IsGenerated(p), "path: %q", p)
	}

	notGenerated := []string{
		"internal/storage/sqlite.go",
		"src/components/Lock.tsx",
		"docs/distribution.md",
	}
	for _, p := range notGenerated {
		assert.False(t, IsGenerated(p), "path: %q", p)
	}
}

func TestIsTest(t *testing.T) {
	assert.True(t, IsTest("internal/ingest/pipeline_test.go"))
	assert.True(t, IsTest("src/auth.test.ts"))
	assert.True(t, IsTest("tests/fixtures.py"))
	assert.True(t, IsTest("test_login.py"))
	assert.False(t, IsTest("internal/ingest/pipeline.go"))
	assert.False(t, IsTest("src/contest.ts"))
}

func TestIsConfigAndDocumentation(t *testing.T) {
	assert.True(t, IsConfig("Dockerfile"))
	assert.True(t, IsConfig("tsconfig.json"))
	assert.True(t, IsConfig(".golangci.yml"))
	assert.False(t, IsConfig("main.go"))

	assert.True(t, IsDocumentation("README.md"))
	assert.True(t, IsDocumentation("CHANGELOG"))
	assert.True(t, IsDocumentation("docs/design.txt"))
	assert.False(t, IsDocumentation("main.go"))
}

func TestRiskScoreBounds(t *testing.T) {
	// The score must stay in [0, 1] across the whole input space.
	changeCounts := []int{0, 5, 11, 26, 51, 1000}
	contributors := []int{0, 3, 6, 11, 50}
	sizes := []float64{0, 10, 51, 201, 10000}
	times := []time.Time{
		{},
		time.Now(),
		time.Now().Add(-3 * 24 * time.Hour),
		time.Now().Add(-365 * 24 * time.Hour),
	}

	for _, cc := range changeCounts {
		for _, con := range contributors {
			for _, sz := range sizes {
				for _, ts := range times {
					score := RiskScore(cc, con, sz, ts)
					assert.GreaterOrEqual(t, score, 0.0)
					assert.LessOrEqual(t, score, 1.0)
				}
			}
		}
	}
}

func TestRiskScoreBands(t *testing.T) {
	// Quiet file: no contributions to the score.
	assert.Equal(t, 0.0, RiskScore(1, 1, 5, time.Now().Add(-30*24*time.Hour)))

	// Everything maxed clamps at 1.0.
	assert.Equal(t, 1.0, RiskScore(100, 20, 500, time.Now()))

	// Frequency bands stack.
	old := time.Now().Add(-60 * 24 * time.Hour)
	assert.InDelta(t, 0.3, RiskScore(11, 0, 0, old), 1e-9)
	assert.InDelta(t, 0.5, RiskScore(26, 0, 0, old), 1e-9)
	assert.InDelta(t, 0.7, RiskScore(51, 0, 0, old), 1e-9)

	// Recency adds 0.1 inside seven days.
	assert.InDelta(t, 0.1, RiskScore(1, 1, 5, time.Now().Add(-24*time.Hour)), 1e-9)
}

func TestAnalyze(t *testing.T) {
	meta := Analyze("internal/storage/sqlite.go", 600, 10)
	assert.Equal(t, "source", meta.Category)
	assert.Equal(t, "Go", meta.Language)
	assert.Equal(t, "massive", meta.Magnitude)
	assert.Contains(t, meta.RiskTags, "massive-change")
	assert.False(t, meta.IsTest)

	meta = Analyze("config/app.yaml", 2, 1)
	assert.Equal(t, "config", meta.Category)
	assert.True(t, meta.IsConfig)
	assert.Contains(t, meta.RiskTags, "config-change")
}
