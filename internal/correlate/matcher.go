package correlate

import (
	"strings"

	"github.com/vibeboard/vibeboard/internal/models"
)

// AuthorMatcher decides whether a commit author and a session actor are
// the same person. Session trackers identify actors in their own terms,
// so the strategy is pluggable.
type AuthorMatcher interface {
	Match(commit *models.Commit, session *models.Session) bool
}

// NoMatch never matches. It is the default: without a configured actor
// mapping, claiming an author match would inflate confidence.
type NoMatch struct{}

func (NoMatch) Match(*models.Commit, *models.Session) bool { return false }

// EmailMatch matches when the session actor equals the commit author's
// email or its local part, case-insensitively.
type EmailMatch struct{}

func (EmailMatch) Match(commit *models.Commit, session *models.Session) bool {
	actor := strings.ToLower(strings.TrimSpace(session.Actor))
	if actor == "" {
		return false
	}
	email := strings.ToLower(commit.AuthorEmail)
	if actor == email {
		return true
	}
	if local, _, ok := strings.Cut(email, "@"); ok && actor == local {
		return true
	}
	return false
}
