package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vibeboard/vibeboard/internal/models"
)

// Row types give each entity a fixed column contract. Mapping between rows
// and models is explicit and validated at the boundary, so a missing
// required field fails fast instead of propagating zero values. Timestamps
// are normalized to UTC on the way in: SQLite stores them as TEXT and
// compares bytes, so a mixed-offset table would filter and sort wrong.

type commitRow struct {
	ID             int64     `db:"id"`
	ProjectID      string    `db:"project_id"`
	Hash           string    `db:"hash"`
	ShortHash      string    `db:"short_hash"`
	Message        string    `db:"message"`
	AuthorName     string    `db:"author_name"`
	AuthorEmail    string    `db:"author_email"`
	AuthoredAt     time.Time `db:"authored_at"`
	CommitterName  string    `db:"committer_name"`
	CommitterEmail string    `db:"committer_email"`
	CommittedAt    time.Time `db:"committed_at"`
	Branch         string    `db:"branch"`
	Parents        string    `db:"parents"`
	IsMerge        bool      `db:"is_merge"`
	FilesChanged   int       `db:"files_changed"`
	Insertions     int       `db:"insertions"`
	Deletions      int       `db:"deletions"`
	CommitType     string    `db:"commit_type"`
	Tags           string    `db:"tags"`
	Metadata       string    `db:"metadata"`
}

func commitToRow(c *models.Commit) (*commitRow, error) {
	if c.ProjectID == "" || c.Hash == "" {
		return nil, fmt.Errorf("commit requires project id and hash")
	}
	parents, err := json.Marshal(c.Parents)
	if err != nil {
		return nil, fmt.Errorf("encode parents: %w", err)
	}
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode commit metadata: %w", err)
	}
	return &commitRow{
		ID:             c.ID,
		ProjectID:      c.ProjectID,
		Hash:           c.Hash,
		ShortHash:      c.ShortHash,
		Message:        c.Message,
		AuthorName:     c.AuthorName,
		AuthorEmail:    c.AuthorEmail,
		AuthoredAt:     c.AuthoredAt.UTC(),
		CommitterName:  c.CommitterName,
		CommitterEmail: c.CommitterEmail,
		CommittedAt:    c.CommittedAt.UTC(),
		Branch:         c.Branch,
		Parents:        string(parents),
		IsMerge:        c.IsMerge,
		FilesChanged:   c.FilesChanged,
		Insertions:     c.Insertions,
		Deletions:      c.Deletions,
		CommitType:     string(c.Type),
		Tags:           string(tags),
		Metadata:       string(metadata),
	}, nil
}

func commitFromRow(r *commitRow) (*models.Commit, error) {
	if r.ProjectID == "" || r.Hash == "" {
		return nil, fmt.Errorf("commit row %d missing project id or hash", r.ID)
	}
	c := &models.Commit{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		Hash:           r.Hash,
		ShortHash:      r.ShortHash,
		Message:        r.Message,
		AuthorName:     r.AuthorName,
		AuthorEmail:    r.AuthorEmail,
		AuthoredAt:     r.AuthoredAt,
		CommitterName:  r.CommitterName,
		CommitterEmail: r.CommitterEmail,
		CommittedAt:    r.CommittedAt,
		Branch:         r.Branch,
		IsMerge:        r.IsMerge,
		FilesChanged:   r.FilesChanged,
		Insertions:     r.Insertions,
		Deletions:      r.Deletions,
		Type:           models.CommitType(r.CommitType),
	}
	if r.Parents != "" {
		if err := json.Unmarshal([]byte(r.Parents), &c.Parents); err != nil {
			return nil, fmt.Errorf("decode parents for commit %s: %w", r.Hash, err)
		}
	}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for commit %s: %w", r.Hash, err)
		}
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for commit %s: %w", r.Hash, err)
		}
	}
	return c, nil
}

type branchRow struct {
	ID            int64      `db:"id"`
	ProjectID     string     `db:"project_id"`
	Name          string     `db:"name"`
	HeadHash      string     `db:"head_hash"`
	BranchType    string     `db:"branch_type"`
	IsDefault     bool       `db:"is_default"`
	IsProtected   bool       `db:"is_protected"`
	CommitCount   int        `db:"commit_count"`
	FirstCommitAt *time.Time `db:"first_commit_at"`
	LastCommitAt  *time.Time `db:"last_commit_at"`
	Upstream      string     `db:"upstream"`
	BaseBranch    string     `db:"base_branch"`
	MergeTarget   string     `db:"merge_target"`
	Metadata      string     `db:"metadata"`
}

func branchToRow(b *models.Branch) (*branchRow, error) {
	if b.ProjectID == "" || b.Name == "" {
		return nil, fmt.Errorf("branch requires project id and name")
	}
	metadata, err := json.Marshal(b.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode branch metadata: %w", err)
	}
	return &branchRow{
		ID:            b.ID,
		ProjectID:     b.ProjectID,
		Name:          b.Name,
		HeadHash:      b.HeadHash,
		BranchType:    string(b.Type),
		IsDefault:     b.IsDefault,
		IsProtected:   b.IsProtected,
		CommitCount:   b.CommitCount,
		FirstCommitAt: utcPtr(b.FirstCommitAt),
		LastCommitAt:  utcPtr(b.LastCommitAt),
		Upstream:      b.Upstream,
		BaseBranch:    b.BaseBranch,
		MergeTarget:   b.MergeTarget,
		Metadata:      string(metadata),
	}, nil
}

func branchFromRow(r *branchRow) (*models.Branch, error) {
	if r.ProjectID == "" || r.Name == "" {
		return nil, fmt.Errorf("branch row %d missing project id or name", r.ID)
	}
	b := &models.Branch{
		ID:            r.ID,
		ProjectID:     r.ProjectID,
		Name:          r.Name,
		HeadHash:      r.HeadHash,
		Type:          models.BranchType(r.BranchType),
		IsDefault:     r.IsDefault,
		IsProtected:   r.IsProtected,
		CommitCount:   r.CommitCount,
		FirstCommitAt: r.FirstCommitAt,
		LastCommitAt:  r.LastCommitAt,
		Upstream:      r.Upstream,
		BaseBranch:    r.BaseBranch,
		MergeTarget:   r.MergeTarget,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for branch %s: %w", r.Name, err)
		}
	}
	return b, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type fileChangeRow struct {
	ID           string `db:"id"`
	CommitID     int64  `db:"commit_id"`
	Path         string `db:"path"`
	OldPath      string `db:"old_path"`
	ChangeType   string `db:"change_type"`
	LinesAdded   int    `db:"lines_added"`
	LinesRemoved int    `db:"lines_removed"`
	IsBinary     bool   `db:"is_binary"`
	IsGenerated  bool   `db:"is_generated"`
	FileSize     *int64 `db:"file_size"`
	Metadata     string `db:"metadata"`
}

func fileChangeToRow(fc *models.FileChange) (*fileChangeRow, error) {
	if fc.ID == "" || fc.CommitID == 0 || fc.Path == "" {
		return nil, fmt.Errorf("file change requires id, commit id, and path")
	}
	metadata, err := json.Marshal(fc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode file change metadata: %w", err)
	}
	return &fileChangeRow{
		ID:           fc.ID,
		CommitID:     fc.CommitID,
		Path:         fc.Path,
		OldPath:      fc.OldPath,
		ChangeType:   string(fc.ChangeType),
		LinesAdded:   fc.LinesAdded,
		LinesRemoved: fc.LinesRemoved,
		IsBinary:     fc.IsBinary,
		IsGenerated:  fc.IsGenerated,
		FileSize:     fc.FileSize,
		Metadata:     string(metadata),
	}, nil
}

func fileChangeFromRow(r *fileChangeRow) (*models.FileChange, error) {
	if r.ID == "" || r.Path == "" {
		return nil, fmt.Errorf("file change row missing id or path")
	}
	fc := &models.FileChange{
		ID:           r.ID,
		CommitID:     r.CommitID,
		Path:         r.Path,
		OldPath:      r.OldPath,
		ChangeType:   models.ChangeType(r.ChangeType),
		LinesAdded:   r.LinesAdded,
		LinesRemoved: r.LinesRemoved,
		IsBinary:     r.IsBinary,
		IsGenerated:  r.IsGenerated,
		FileSize:     r.FileSize,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &fc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for file change %s: %w", r.ID, err)
		}
	}
	return fc, nil
}

type sessionLinkRow struct {
	ID               string  `db:"id"`
	CommitID         int64   `db:"commit_id"`
	SessionID        string  `db:"session_id"`
	LinkType         string  `db:"link_type"`
	Confidence       float64 `db:"confidence"`
	TimeProximityMin float64 `db:"time_proximity_min"`
	AuthorMatch      bool    `db:"author_match"`
	Metadata         string  `db:"metadata"`
}

func sessionLinkToRow(l *models.SessionLink) (*sessionLinkRow, error) {
	if l.ID == "" || l.CommitID == 0 || l.SessionID == "" {
		return nil, fmt.Errorf("session link requires id, commit id, and session id")
	}
	metadata, err := json.Marshal(l.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode session link metadata: %w", err)
	}
	return &sessionLinkRow{
		ID:               l.ID,
		CommitID:         l.CommitID,
		SessionID:        l.SessionID,
		LinkType:         l.LinkType,
		Confidence:       l.Confidence,
		TimeProximityMin: l.TimeProximityMin,
		AuthorMatch:      l.AuthorMatch,
		Metadata:         string(metadata),
	}, nil
}

func sessionLinkFromRow(r *sessionLinkRow) (*models.SessionLink, error) {
	if r.ID == "" || r.SessionID == "" {
		return nil, fmt.Errorf("session link row missing id or session id")
	}
	l := &models.SessionLink{
		ID:               r.ID,
		CommitID:         r.CommitID,
		SessionID:        r.SessionID,
		LinkType:         r.LinkType,
		Confidence:       r.Confidence,
		TimeProximityMin: r.TimeProximityMin,
		AuthorMatch:      r.AuthorMatch,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &l.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for session link %s: %w", r.ID, err)
		}
	}
	return l, nil
}
