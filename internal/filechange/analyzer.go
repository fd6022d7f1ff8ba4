// Package filechange analyzes individual file changes: categorization,
// language detection, change magnitude, generated-file detection, and the
// per-file risk score used for hotspot ranking.
package filechange

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/vibeboard/vibeboard/internal/models"
)

// Category buckets a file by what kind of artifact it is.
type Category string

const (
	CategorySource        Category = "source"
	CategoryWeb           Category = "web"
	CategoryConfig        Category = "config"
	CategoryDocumentation Category = "documentation"
	CategoryData          Category = "data"
	CategoryImage         Category = "image"
	CategoryArchive       Category = "archive"
	CategoryExecutable    Category = "executable"
	CategoryOther         Category = "other"
)

// Magnitude bands the size of a change by total lines touched.
type Magnitude string

const (
	MagnitudeNone    Magnitude = "none"
	MagnitudeMinimal Magnitude = "minimal"
	MagnitudeSmall   Magnitude = "small"
	MagnitudeMedium  Magnitude = "medium"
	MagnitudeLarge   Magnitude = "large"
	MagnitudeMassive Magnitude = "massive"
)

var categoryByExt = map[string]Category{
	".go": CategorySource, ".py": CategorySource, ".rb": CategorySource,
	".java": CategorySource, ".kt": CategorySource, ".rs": CategorySource,
	".c": CategorySource, ".h": CategorySource, ".cpp": CategorySource,
	".cs": CategorySource, ".swift": CategorySource, ".php": CategorySource,
	".sql": CategorySource, ".sh": CategorySource,

	".js": CategoryWeb, ".jsx": CategoryWeb, ".ts": CategoryWeb,
	".tsx": CategoryWeb, ".html": CategoryWeb, ".css": CategoryWeb,
	".scss": CategoryWeb, ".vue": CategoryWeb, ".svelte": CategoryWeb,

	".json": CategoryConfig, ".yaml": CategoryConfig, ".yml": CategoryConfig,
	".toml": CategoryConfig, ".ini": CategoryConfig, ".env": CategoryConfig,
	".conf": CategoryConfig, ".properties": CategoryConfig,

	".md": CategoryDocumentation, ".rst": CategoryDocumentation,
	".txt": CategoryDocumentation, ".adoc": CategoryDocumentation,

	".csv": CategoryData, ".tsv": CategoryData, ".parquet": CategoryData,
	".xml": CategoryData,

	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage,
	".gif": CategoryImage, ".svg": CategoryImage, ".ico": CategoryImage,

	".zip": CategoryArchive, ".tar": CategoryArchive, ".gz": CategoryArchive,
	".7z": CategoryArchive,

	".exe": CategoryExecutable, ".dll": CategoryExecutable,
	".so": CategoryExecutable, ".dylib": CategoryExecutable,
	".wasm": CategoryExecutable,
}

var languageByExt = map[string]string{
	".go":     "Go",
	".py":     "Python",
	".rb":     "Ruby",
	".java":   "Java",
	".kt":     "Kotlin",
	".rs":     "Rust",
	".c":      "C",
	".h":      "C",
	".cpp":    "C++",
	".cs":     "C#",
	".swift":  "Swift",
	".php":    "PHP",
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".sql":    "SQL",
	".sh":     "Shell",
	".html":   "HTML",
	".css":    "CSS",
	".scss":   "SCSS",
	".vue":    "Vue",
	".svelte": "Svelte",
}

// Categorize buckets a path by extension. Unknown extensions are "other".
func Categorize(path string) Category {
	if c, ok := categoryByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return CategoryOther
}

// Language returns the detected language for a path, if any.
func Language(path string) (string, bool) {
	lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ChangeMagnitude bands insertions+deletions into a size class.
func ChangeMagnitude(insertions, deletions int) Magnitude {
	total := insertions + deletions
	switch {
	case total == 0:
		return MagnitudeNone
	case total <= 5:
		return MagnitudeMinimal
	case total <= 25:
		return MagnitudeSmall
	case total <= 100:
		return MagnitudeMedium
	case total <= 500:
		return MagnitudeLarge
	default:
		return MagnitudeMassive
	}
}

var configFilePatterns = []string{
	"dockerfile", "makefile", ".gitignore", ".gitattributes",
	".editorconfig", ".eslintrc", ".prettierrc", ".babelrc",
	"tsconfig", "webpack.config", "vite.config", "jest.config",
	"rollup.config", ".golangci",
}

// IsConfig reports whether a path looks like project configuration.
func IsConfig(path string) bool {
	if Categorize(path) == CategoryConfig {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	for _, p := range configFilePatterns {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

var docFileNames = []string{
	"readme", "changelog", "contributing", "license", "authors",
	"code_of_conduct", "notice",
}

// IsDocumentation reports whether a path is documentation.
func IsDocumentation(path string) bool {
	if Categorize(path) == CategoryDocumentation {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, n := range docFileNames {
		if base == n {
			return true
		}
	}
	return strings.Contains(strings.ToLower(path), "docs/")
}

// IsTest reports whether a path is a test file.
func IsTest(path string) bool {
	lower := strings.ToLower(path)
	base := filepath.Base(lower)
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, ".test.js"), strings.HasSuffix(base, ".test.ts"),
		strings.HasSuffix(base, ".test.jsx"), strings.HasSuffix(base, ".test.tsx"),
		strings.HasSuffix(base, ".spec.js"), strings.HasSuffix(base, ".spec.ts"),
		strings.HasPrefix(base, "test_"):
		return true
	}
	for _, dir := range []string{"test/", "tests/", "__tests__/", "spec/"} {
		if strings.Contains(lower, dir) {
			return true
		}
	}
	return false
}

// generatedPatterns are substring matches against the full lowercased
// path. Lockfiles, vendored trees, minified assets, and build output are
// always generated, independent of any other flag.
var generatedPatterns = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	"cargo.lock", "gemfile.lock", "poetry.lock", "composer.lock",
	"node_modules/", "vendor/", "bower_components/",
	".min.js", ".min.css", ".map",
	"dist/", "build/", "out/", "target/", ".next/", "__pycache__/",
	".pb.go", "_generated.go", ".generated.",
}

// IsGenerated reports whether a path is generated or vendored content.
func IsGenerated(path string) bool {
	lower := strings.ToLower(path)
	for _, p := range generatedPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RiskScore computes a 0..1 risk score for a file from its aggregated
// change history. The score is additive: change frequency, contributor
// spread, average change size, and recency each contribute a band.
func RiskScore(changeCount, contributorCount int, avgChangeSize float64, lastChangedAt time.Time) float64 {
	score := 0.0

	if changeCount > 10 {
		score += 0.3
	}
	if changeCount > 25 {
		score += 0.2
	}
	if changeCount > 50 {
		score += 0.2
	}

	if contributorCount > 5 {
		score += 0.2
	}
	if contributorCount > 10 {
		score += 0.1
	}

	if avgChangeSize > 50 {
		score += 0.2
	}
	if avgChangeSize > 200 {
		score += 0.2
	}

	if !lastChangedAt.IsZero() && time.Since(lastChangedAt) <= 7*24*time.Hour {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Analyze bundles the analyzer's verdict for one changed file into the
// metadata attached to a FileChange row.
func Analyze(path string, insertions, deletions int) models.FileChangeMetadata {
	meta := models.FileChangeMetadata{
		Category:  string(Categorize(path)),
		Magnitude: string(ChangeMagnitude(insertions, deletions)),
	}
	if lang, ok := Language(path); ok {
		meta.Language = lang
	}
	meta.IsConfig = IsConfig(path)
	meta.IsDocumentation = IsDocumentation(path)
	meta.IsTest = IsTest(path)

	if ChangeMagnitude(insertions, deletions) == MagnitudeMassive {
		meta.RiskTags = append(meta.RiskTags, "massive-change")
	}
	if meta.IsConfig {
		meta.RiskTags = append(meta.RiskTags, "config-change")
	}
	return meta
}
