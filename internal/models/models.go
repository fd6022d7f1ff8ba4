package models

import (
	"time"
)

// CommitType is the classified intent of a commit.
type CommitType string

const (
	CommitTypeFeature  CommitType = "feature"
	CommitTypeFix      CommitType = "fix"
	CommitTypeDocs     CommitType = "docs"
	CommitTypeRefactor CommitType = "refactor"
	CommitTypeTest     CommitType = "test"
	CommitTypeStyle    CommitType = "style"
	CommitTypeChore    CommitType = "chore"
	CommitTypeMerge    CommitType = "merge"
)

// BranchType is the classified role of a branch.
type BranchType string

const (
	BranchTypeMain    BranchType = "main"
	BranchTypeFeature BranchType = "feature"
	BranchTypeHotfix  BranchType = "hotfix"
	BranchTypeRelease BranchType = "release"
	BranchTypeDevelop BranchType = "develop"
)

// ChangeType describes how a file was touched by a commit.
type ChangeType string

const (
	ChangeTypeAdded    ChangeType = "added"
	ChangeTypeModified ChangeType = "modified"
	ChangeTypeDeleted  ChangeType = "deleted"
	ChangeTypeRenamed  ChangeType = "renamed"
)

// Commit is a persisted git commit, unique per (project, hash).
// Core fields are immutable after creation; only classification and
// metadata may be recomputed by a later ingestion pass.
type Commit struct {
	ID             int64          `json:"id" db:"id"`
	ProjectID      string         `json:"project_id" db:"project_id"`
	Hash           string         `json:"hash" db:"hash"`
	ShortHash      string         `json:"short_hash" db:"short_hash"`
	Message        string         `json:"message" db:"message"`
	AuthorName     string         `json:"author_name" db:"author_name"`
	AuthorEmail    string         `json:"author_email" db:"author_email"`
	AuthoredAt     time.Time      `json:"authored_at" db:"authored_at"`
	CommitterName  string         `json:"committer_name" db:"committer_name"`
	CommitterEmail string         `json:"committer_email" db:"committer_email"`
	CommittedAt    time.Time      `json:"committed_at" db:"committed_at"`
	Branch         string         `json:"branch" db:"branch"`
	Parents        []string       `json:"parents"`
	IsMerge        bool           `json:"is_merge" db:"is_merge"`
	FilesChanged   int            `json:"files_changed" db:"files_changed"`
	Insertions     int            `json:"insertions" db:"insertions"`
	Deletions      int            `json:"deletions" db:"deletions"`
	Type           CommitType     `json:"commit_type" db:"commit_type"`
	Tags           []string       `json:"tags"`
	Metadata       CommitMetadata `json:"metadata"`
}

// CommitMetadata is the structured blob stored alongside a commit row.
type CommitMetadata struct {
	Message MessageAnalysis `json:"message"`
	Merge   *MergeInfo      `json:"merge,omitempty"`
	Stats   RawStats        `json:"stats"`
}

// MessageAnalysis holds the semantics parsed out of a commit message.
type MessageAnalysis struct {
	IsConventional bool       `json:"is_conventional"`
	ConvType       string     `json:"conv_type,omitempty"`
	Scope          string     `json:"scope,omitempty"`
	Breaking       bool       `json:"breaking"`
	Tickets        []string   `json:"tickets,omitempty"`
	CoAuthors      []CoAuthor `json:"co_authors,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// CoAuthor is a Co-authored-by trailer entry.
type CoAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MergeInfo is the best-effort analysis of a merge commit.
type MergeInfo struct {
	SourceBranch string `json:"source_branch,omitempty"`
	TargetBranch string `json:"target_branch,omitempty"`
	Strategy     string `json:"strategy"`
}

// RawStats is the raw diff breakdown for a commit.
type RawStats struct {
	FilesChanged int `json:"files_changed"`
	Insertions   int `json:"insertions"`
	Deletions    int `json:"deletions"`
}

// Branch is a persisted branch row, upserted by name on each ingestion pass.
type Branch struct {
	ID            int64          `json:"id" db:"id"`
	ProjectID     string         `json:"project_id" db:"project_id"`
	Name          string         `json:"name" db:"name"`
	HeadHash      string         `json:"head_hash" db:"head_hash"`
	Type          BranchType     `json:"branch_type" db:"branch_type"`
	IsDefault     bool           `json:"is_default" db:"is_default"`
	IsProtected   bool           `json:"is_protected" db:"is_protected"`
	CommitCount   int            `json:"commit_count" db:"commit_count"`
	FirstCommitAt *time.Time     `json:"first_commit_at,omitempty" db:"first_commit_at"`
	LastCommitAt  *time.Time     `json:"last_commit_at,omitempty" db:"last_commit_at"`
	Upstream      string         `json:"upstream,omitempty" db:"upstream"`
	BaseBranch    string         `json:"base_branch,omitempty" db:"base_branch"`
	MergeTarget   string         `json:"merge_target,omitempty" db:"merge_target"`
	Metadata      BranchMetadata `json:"metadata"`
}

// BranchMetadata holds derived branch details that do not merit columns.
type BranchMetadata struct {
	IsRemote       bool   `json:"is_remote,omitempty"`
	LastAuthor     string `json:"last_author,omitempty"`
	LastSubject    string `json:"last_subject,omitempty"`
	LastIngestedAt string `json:"last_ingested_at,omitempty"`
}

// FileChange is a single file touched by a commit. Owned by the commit and
// never mutated after creation.
type FileChange struct {
	ID           string             `json:"id" db:"id"`
	CommitID     int64              `json:"commit_id" db:"commit_id"`
	Path         string             `json:"path" db:"path"`
	OldPath      string             `json:"old_path,omitempty" db:"old_path"`
	ChangeType   ChangeType         `json:"change_type" db:"change_type"`
	LinesAdded   int                `json:"lines_added" db:"lines_added"`
	LinesRemoved int                `json:"lines_removed" db:"lines_removed"`
	IsBinary     bool               `json:"is_binary" db:"is_binary"`
	IsGenerated  bool               `json:"is_generated" db:"is_generated"`
	FileSize     *int64             `json:"file_size,omitempty" db:"file_size"`
	Metadata     FileChangeMetadata `json:"metadata"`
}

// FileChangeMetadata carries the analyzer's verdict for a file change.
type FileChangeMetadata struct {
	Category        string   `json:"category"`
	Language        string   `json:"language,omitempty"`
	Magnitude       string   `json:"magnitude"`
	IsConfig        bool     `json:"is_config,omitempty"`
	IsDocumentation bool     `json:"is_documentation,omitempty"`
	IsTest          bool     `json:"is_test,omitempty"`
	RiskTags        []string `json:"risk_tags,omitempty"`
}

// Session is a development session recorded by the external session tracker.
// EndedAt is nil while the session is still open.
type Session struct {
	ID        string     `json:"id" db:"id"`
	ProjectID string     `json:"project_id" db:"project_id"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Actor     string     `json:"actor" db:"actor"`
}

// SessionLink is a confidence-scored association between a commit and a
// session. At most one link exists per (commit, session) pair and its
// confidence only ever increases.
type SessionLink struct {
	ID               string              `json:"id" db:"id"`
	CommitID         int64               `json:"commit_id" db:"commit_id"`
	SessionID        string              `json:"session_id" db:"session_id"`
	LinkType         string              `json:"link_type" db:"link_type"`
	Confidence       float64             `json:"confidence" db:"confidence"`
	TimeProximityMin float64             `json:"time_proximity_min" db:"time_proximity_min"`
	AuthorMatch      bool                `json:"author_match" db:"author_match"`
	Metadata         SessionLinkMetadata `json:"metadata"`
}

// SessionLinkMetadata records how the link score was assembled.
type SessionLinkMetadata struct {
	InsideWindow bool   `json:"inside_window"`
	ComputedAt   string `json:"computed_at,omitempty"`
}

// FileAggregate is a per-path rollup of file changes, the input to hotspot
// scoring.
type FileAggregate struct {
	Path          string    `json:"path" db:"path"`
	ChangeCount   int       `json:"change_count" db:"change_count"`
	Contributors  int       `json:"contributors" db:"contributors"`
	TotalLines    int       `json:"total_lines" db:"total_lines"`
	AvgChangeSize float64   `json:"avg_change_size" db:"avg_change_size"`
	LastChangedAt time.Time `json:"last_changed_at" db:"last_changed_at"`
}

// Hotspot is a scored file aggregate.
type Hotspot struct {
	Path          string    `json:"path"`
	Score         float64   `json:"score"`
	ChangeCount   int       `json:"change_count"`
	Contributors  int       `json:"contributors"`
	AvgChangeSize float64   `json:"avg_change_size"`
	LastChangedAt time.Time `json:"last_changed_at"`
}

// ContributorStat summarizes one author's activity in a project.
type ContributorStat struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Commits    int       `json:"commits"`
	Insertions int       `json:"insertions"`
	Deletions  int       `json:"deletions"`
	LastCommit time.Time `json:"last_commit"`
}
