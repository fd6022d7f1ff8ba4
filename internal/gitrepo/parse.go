package gitrepo

import (
	"strconv"
	"strings"
	"time"
)

// logFormat emits one record per commit. Fields are separated by the unit
// separator and records by the record separator, so the full message body
// (which contains newlines) survives parsing. The trailing unit separator
// marks where the numstat block begins.
const logFormat = "\x1e%H\x1f%h\x1f%an\x1f%ae\x1f%aI\x1f%cn\x1f%ce\x1f%cI\x1f%P\x1f%B\x1f"

// CommitRecord is one parsed commit from git log.
type CommitRecord struct {
	Hash           string
	ShortHash      string
	AuthorName     string
	AuthorEmail    string
	AuthoredAt     time.Time
	CommitterName  string
	CommitterEmail string
	CommittedAt    time.Time
	Parents        []string
	Subject        string
	Body           string
	Files          []FileStat
}

// FileStat is one numstat line: per-file insertions and deletions.
// Binary files report no line counts.
type FileStat struct {
	Path       string
	OldPath    string
	Insertions int
	Deletions  int
	Binary     bool
}

// Message reassembles the full commit message.
func (r *CommitRecord) Message() string {
	if r.Body == "" {
		return r.Subject
	}
	return r.Subject + "\n\n" + r.Body
}

// parseLog splits git log output produced with logFormat into records.
func parseLog(output string) ([]CommitRecord, error) {
	var records []CommitRecord

	for _, raw := range strings.Split(output, "\x1e") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		fields := strings.SplitN(raw, "\x1f", 10)
		if len(fields) < 10 {
			continue // malformed record
		}

		rec := CommitRecord{
			Hash:           fields[0],
			ShortHash:      fields[1],
			AuthorName:     fields[2],
			AuthorEmail:    fields[3],
			CommitterName:  fields[5],
			CommitterEmail: fields[6],
		}

		if ts, err := time.Parse(time.RFC3339, fields[4]); err == nil {
			rec.AuthoredAt = ts
		}
		if ts, err := time.Parse(time.RFC3339, fields[7]); err == nil {
			rec.CommittedAt = ts
		}

		if parents := strings.TrimSpace(fields[8]); parents != "" {
			rec.Parents = strings.Fields(parents)
		}

		subject, body := splitMessage(fields[9], &rec)
		rec.Subject = subject
		rec.Body = body

		records = append(records, rec)
	}

	return records, nil
}

// splitMessage separates the %B message from the numstat block that
// follows the closing unit separator, filling rec.Files as a side effect.
func splitMessage(tail string, rec *CommitRecord) (subject, body string) {
	message := tail
	if i := strings.IndexByte(tail, '\x1f'); i >= 0 {
		message = tail[:i]
		rec.Files = parseNumstat(tail[i+1:])
	}

	message = strings.TrimRight(message, "\n")
	lines := strings.SplitN(message, "\n", 2)
	subject = strings.TrimSpace(lines[0])
	if len(lines) == 2 {
		body = strings.TrimSpace(lines[1])
	}
	return subject, body
}

// parseNumstat parses "insertions<TAB>deletions<TAB>path" lines. Binary
// files report "-" counts. Renames arrive either as "old => new" or with
// the braced shorthand "dir/{old => new}/file".
func parseNumstat(block string) []FileStat {
	var stats []FileStat

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}

		stat := FileStat{}
		if parts[0] == "-" || parts[1] == "-" {
			stat.Binary = true
		} else {
			stat.Insertions, _ = strconv.Atoi(parts[0])
			stat.Deletions, _ = strconv.Atoi(parts[1])
		}

		stat.Path, stat.OldPath = parseRename(parts[2])
		stats = append(stats, stat)
	}

	return stats
}

// parseRename resolves numstat rename notation to (newPath, oldPath).
// Non-renames return oldPath == "".
func parseRename(raw string) (path, oldPath string) {
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.Index(raw, "}"); j > i {
			inner := raw[i+1 : j]
			if k := strings.Index(inner, " => "); k >= 0 {
				prefix, suffix := raw[:i], raw[j+1:]
				oldPath = cleanPath(prefix + inner[:k] + suffix)
				path = cleanPath(prefix + inner[k+4:] + suffix)
				return path, oldPath
			}
		}
	}

	if k := strings.Index(raw, " => "); k >= 0 {
		return raw[k+4:], raw[:k]
	}
	return raw, ""
}

// cleanPath collapses the "//" left behind when a braced rename segment
// is empty, e.g. "src/{ => core}/main.go".
func cleanPath(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimPrefix(p, "/")
}
