// Package classify holds the pure classification heuristics for commit
// messages and branch names. Everything here is stateless; rules are
// ordered tables evaluated top to bottom so individual rules stay
// independently testable.
package classify

import (
	"regexp"
	"strings"

	"github.com/vibeboard/vibeboard/internal/models"
)

// conventionalRe matches the conventional-commit header form
// "type(scope)!: subject". Scope and the breaking "!" are optional.
var conventionalRe = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?(!)?:\s+(.+)`)

// conventionalTypes maps a conventional-commit type to the internal enum.
var conventionalTypes = map[string]models.CommitType{
	"feat":     models.CommitTypeFeature,
	"fix":      models.CommitTypeFix,
	"docs":     models.CommitTypeDocs,
	"style":    models.CommitTypeStyle,
	"refactor": models.CommitTypeRefactor,
	"test":     models.CommitTypeTest,
	"chore":    models.CommitTypeChore,
	"build":    models.CommitTypeChore,
	"ci":       models.CommitTypeChore,
	"perf":     models.CommitTypeRefactor,
	"revert":   models.CommitTypeFix,
}

// prefixRule is one entry in the fallback classification table.
type prefixRule struct {
	pattern *regexp.Regexp
	result  models.CommitType
}

// prefixRules is the fallback for messages that are not conventional
// commits. Order matters: first match wins.
var prefixRules = []prefixRule{
	{regexp.MustCompile(`(?i)^merge\b`), models.CommitTypeMerge},
	{regexp.MustCompile(`(?i)^(fix|bugfix|hotfix|revert)\b`), models.CommitTypeFix},
	{regexp.MustCompile(`(?i)^(docs?|documentation)\b`), models.CommitTypeDocs},
	{regexp.MustCompile(`(?i)^(style|format|lint)\b`), models.CommitTypeStyle},
	{regexp.MustCompile(`(?i)^(refactor|perf|cleanup|restructure)\b`), models.CommitTypeRefactor},
	{regexp.MustCompile(`(?i)^tests?\b`), models.CommitTypeTest},
	{regexp.MustCompile(`(?i)^(chore|build|ci|bump|upgrade|update deps)\b`), models.CommitTypeChore},
	{regexp.MustCompile(`(?i)^(feat|feature|add)\b`), models.CommitTypeFeature},
}

// CommitType classifies a commit message into the internal type enum.
// Conventional-commit parsing is attempted first; on no match the message
// falls through the prefix rule table. Default is feature.
func CommitType(message string) models.CommitType {
	subject := firstLine(message)

	if m := conventionalRe.FindStringSubmatch(subject); m != nil {
		if t, ok := conventionalTypes[strings.ToLower(m[1])]; ok {
			return t
		}
	}

	for _, rule := range prefixRules {
		if rule.pattern.MatchString(subject) {
			return rule.result
		}
	}
	return models.CommitTypeFeature
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
