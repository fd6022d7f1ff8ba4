package classify

import (
	"regexp"
	"strings"

	"github.com/vibeboard/vibeboard/internal/models"
)

var (
	// Ticket references: "#123", "PROJ-456", or "closes/fixes/resolves #n".
	issueRefRe   = regexp.MustCompile(`#(\d+)`)
	ticketKeyRe  = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)
	closesRefRe  = regexp.MustCompile(`(?i)\b(?:closes|fixes|resolves)\s+#(\d+)`)
	coAuthorRe   = regexp.MustCompile(`(?im)^Co-authored-by:\s*(.+?)\s*<([^>]+)>`)
	breakingBody = "BREAKING CHANGE"
)

// AnalyzeMessage parses the semantics out of a commit message and its body:
// breaking-change markers, ticket references, co-author trailers, and a
// derived tag set.
func AnalyzeMessage(message, body string) models.MessageAnalysis {
	analysis := models.MessageAnalysis{}
	subject := firstLine(message)

	if m := conventionalRe.FindStringSubmatch(subject); m != nil {
		if _, ok := conventionalTypes[strings.ToLower(m[1])]; ok {
			analysis.IsConventional = true
			analysis.ConvType = strings.ToLower(m[1])
			analysis.Scope = m[2]
			if m[3] == "!" {
				analysis.Breaking = true
			}
		}
	}

	full := message
	if body != "" {
		full = message + "\n" + body
	}
	if strings.Contains(full, breakingBody) {
		analysis.Breaking = true
	}

	analysis.Tickets = extractTickets(full)

	for _, m := range coAuthorRe.FindAllStringSubmatch(full, -1) {
		analysis.CoAuthors = append(analysis.CoAuthors, models.CoAuthor{
			Name:  strings.TrimSpace(m[1]),
			Email: strings.TrimSpace(m[2]),
		})
	}

	if analysis.Breaking {
		analysis.Tags = append(analysis.Tags, "breaking")
	}
	if analysis.IsConventional {
		analysis.Tags = append(analysis.Tags, "conventional")
	}
	if len(analysis.Tickets) > 0 {
		analysis.Tags = append(analysis.Tags, "references-ticket")
	}
	if len(analysis.CoAuthors) > 0 {
		analysis.Tags = append(analysis.Tags, "collaborative")
	}

	return analysis
}

// extractTickets collects ticket references in order of appearance,
// deduplicated. Bare "#123" and "closes #123" normalize to the same ref.
func extractTickets(text string) []string {
	var tickets []string
	seen := make(map[string]bool)

	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			tickets = append(tickets, ref)
		}
	}

	for _, m := range issueRefRe.FindAllStringSubmatch(text, -1) {
		add("#" + m[1])
	}
	for _, m := range ticketKeyRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range closesRefRe.FindAllStringSubmatch(text, -1) {
		add("#" + m[1])
	}

	return tickets
}
