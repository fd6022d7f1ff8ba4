package ingest

import (
	"fmt"
	"strings"
)

// noiseInput is the view of a commit the dependency-noise filter sees.
type noiseInput struct {
	Insertions   int
	FilesChanged int
	Paths        []string
	Message      string
}

// noiseRule is one entry in the dependency-noise table. Rules are
// evaluated in order; the first match tags the commit as noise.
type noiseRule struct {
	name  string
	match func(in noiseInput) bool
}

var lockfilePatterns = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	"cargo.lock", "gemfile.lock", "poetry.lock", "composer.lock",
	"node_modules/", "vendor/", ".min.js", ".min.css",
}

var dependencyKeywords = []string{
	"package-lock", "yarn add", "npm install", "bump dependencies",
	"update dependencies", "go mod tidy",
}

var noiseRules = []noiseRule{
	{
		name: "massive-insertions",
		match: func(in noiseInput) bool {
			return in.Insertions > 10000
		},
	},
	{
		name: "massive-file-count",
		match: func(in noiseInput) bool {
			return in.FilesChanged > 1000
		},
	},
	{
		name: "mostly-lockfile-paths",
		match: func(in noiseInput) bool {
			if len(in.Paths) == 0 {
				return false
			}
			matched := 0
			for _, p := range in.Paths {
				lower := strings.ToLower(p)
				for _, pattern := range lockfilePatterns {
					if strings.Contains(lower, pattern) {
						matched++
						break
					}
				}
			}
			return float64(matched)/float64(len(in.Paths)) > 0.5
		},
	},
	{
		name: "dependency-message",
		match: func(in noiseInput) bool {
			if in.Insertions <= 1000 {
				return false
			}
			lower := strings.ToLower(in.Message)
			for _, kw := range dependencyKeywords {
				if strings.Contains(lower, kw) {
					return true
				}
			}
			return false
		},
	},
}

// dependencyNoise reports whether a commit is almost certainly
// non-substantive dependency or vendor churn, and which rule fired.
func dependencyNoise(in noiseInput) (string, bool) {
	for _, rule := range noiseRules {
		if rule.match(in) {
			return rule.name, true
		}
	}
	return "", false
}

// mergeStrategy guesses how a merge was performed from message keywords.
func mergeStrategy(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "squash"):
		return "squash"
	case strings.Contains(lower, "rebase"):
		return "rebase"
	case strings.Contains(lower, "fast-forward"):
		return "fast-forward"
	default:
		return "merge"
	}
}

// itemError formats a per-item failure for the result error list.
func itemError(stage, subject string, err error) string {
	return fmt.Sprintf("%s %s: %v", stage, subject, err)
}
