package classify

import (
	"regexp"

	"github.com/vibeboard/vibeboard/internal/models"
)

type branchRule struct {
	pattern *regexp.Regexp
	result  models.BranchType
}

// branchRules are evaluated in order; first match wins.
var branchRules = []branchRule{
	{regexp.MustCompile(`^(main|master)$`), models.BranchTypeMain},
	{regexp.MustCompile(`^(feature|feat)/`), models.BranchTypeFeature},
	{regexp.MustCompile(`^(hotfix|fix)/`), models.BranchTypeHotfix},
	{regexp.MustCompile(`^release/`), models.BranchTypeRelease},
	{regexp.MustCompile(`^develop$`), models.BranchTypeDevelop},
}

// BranchType classifies a branch name. Unrecognized names default to
// feature.
func BranchType(name string) models.BranchType {
	for _, rule := range branchRules {
		if rule.pattern.MatchString(name) {
			return rule.result
		}
	}
	return models.BranchTypeFeature
}

// DefaultBranch resolves the default branch from an inventory: an explicit
// default flag wins, then "main", then "master".
func DefaultBranch(branches []*models.Branch) (string, bool) {
	for _, b := range branches {
		if b.IsDefault {
			return b.Name, true
		}
	}
	for _, name := range []string{"main", "master"} {
		for _, b := range branches {
			if b.Name == name {
				return name, true
			}
		}
	}
	return "", false
}
