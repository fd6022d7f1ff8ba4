package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyNoiseRules(t *testing.T) {
	tests := []struct {
		name     string
		input    noiseInput
		wantRule string
		want     bool
	}{
		{
			name:     "typical feature commit",
			input:    noiseInput{Insertions: 120, FilesChanged: 4, Paths: []string{"internal/api/server.go"}, Message: "feat: add session endpoint"},
			wantRule: "",
			want:     false,
		},
		{
			name:     "massive insertions excluded regardless of message",
			input:    noiseInput{Insertions: 15000, FilesChanged: 1, Paths: []string{"data/fixture.json"}, Message: "add fixture"},
			wantRule: "massive-insertions",
			want:     true,
		},
		{
			name:     "massive file count",
			input:    noiseInput{Insertions: 500, FilesChanged: 1500, Message: "reformat everything"},
			wantRule: "massive-file-count",
			want:     true,
		},
		{
			name: "mostly lockfile paths",
			input: noiseInput{
				Insertions:   400,
				FilesChanged: 3,
				Paths:        []string{"package-lock.json", "yarn.lock", "src/app.js"},
				Message:      "bump stuff",
			},
			wantRule: "mostly-lockfile-paths",
			want:     true,
		},
		{
			name:     "dependency message with large insertions",
			input:    noiseInput{Insertions: 2000, FilesChanged: 8, Paths: []string{"go.mod", "internal/a.go"}, Message: "chore: bump dependencies"},
			wantRule: "dependency-message",
			want:     true,
		},
		{
			name:     "dependency message with small insertions kept",
			input:    noiseInput{Insertions: 12, FilesChanged: 1, Paths: []string{"go.mod"}, Message: "chore: bump dependencies"},
			wantRule: "",
			want:     false,
		},
		{
			name: "half lockfile paths is not mostly",
			input: noiseInput{
				Insertions:   100,
				FilesChanged: 2,
				Paths:        []string{"go.sum", "main.go"},
				Message:      "tidy",
			},
			wantRule: "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, noisy := dependencyNoise(tt.input)
			assert.Equal(t, tt.want, noisy)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestMergeStrategy(t *testing.T) {
	assert.Equal(t, "squash", mergeStrategy("Squash merge branch 'feature/x'"))
	assert.Equal(t, "rebase", mergeStrategy("rebase onto main"))
	assert.Equal(t, "fast-forward", mergeStrategy("fast-forward main to release"))
	assert.Equal(t, "merge", mergeStrategy("Merge pull request #12 from org/feature"))
}
