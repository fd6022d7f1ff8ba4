package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/models"
)

// PostgresStore implements storage using PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		id BIGSERIAL PRIMARY KEY,
		project_id TEXT NOT NULL,
		hash TEXT NOT NULL,
		short_hash TEXT,
		message TEXT,
		author_name TEXT,
		author_email TEXT,
		authored_at TIMESTAMPTZ,
		committer_name TEXT,
		committer_email TEXT,
		committed_at TIMESTAMPTZ,
		branch TEXT,
		parents TEXT[],
		is_merge BOOLEAN DEFAULT FALSE,
		files_changed INTEGER DEFAULT 0,
		insertions INTEGER DEFAULT 0,
		deletions INTEGER DEFAULT 0,
		commit_type TEXT,
		tags TEXT[],
		metadata JSONB,
		UNIQUE (project_id, hash)
	);

	CREATE TABLE IF NOT EXISTS branches (
		id BIGSERIAL PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		head_hash TEXT,
		branch_type TEXT,
		is_default BOOLEAN DEFAULT FALSE,
		is_protected BOOLEAN DEFAULT FALSE,
		commit_count INTEGER DEFAULT 0,
		first_commit_at TIMESTAMPTZ,
		last_commit_at TIMESTAMPTZ,
		upstream TEXT,
		base_branch TEXT,
		merge_target TEXT,
		metadata JSONB,
		UNIQUE (project_id, name)
	);

	CREATE TABLE IF NOT EXISTS file_changes (
		id TEXT PRIMARY KEY,
		commit_id BIGINT NOT NULL REFERENCES commits(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		old_path TEXT,
		change_type TEXT,
		lines_added INTEGER DEFAULT 0,
		lines_removed INTEGER DEFAULT 0,
		is_binary BOOLEAN DEFAULT FALSE,
		is_generated BOOLEAN DEFAULT FALSE,
		file_size BIGINT,
		metadata JSONB
	);

	CREATE TABLE IF NOT EXISTS session_links (
		id TEXT PRIMARY KEY,
		commit_id BIGINT NOT NULL REFERENCES commits(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL,
		link_type TEXT,
		confidence DOUBLE PRECISION DEFAULT 0,
		time_proximity_min DOUBLE PRECISION DEFAULT 0,
		author_match BOOLEAN DEFAULT FALSE,
		metadata JSONB,
		UNIQUE (commit_id, session_id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		actor TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_commits_project ON commits(project_id);
	CREATE INDEX IF NOT EXISTS idx_commits_committed ON commits(project_id, committed_at);
	CREATE INDEX IF NOT EXISTS idx_branches_project ON branches(project_id);
	CREATE INDEX IF NOT EXISTS idx_file_changes_commit ON file_changes(commit_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveCommit(ctx context.Context, commit *models.Commit) error {
	if commit.ProjectID == "" || commit.Hash == "" {
		return fmt.Errorf("commit requires project id and hash")
	}
	metadata, err := json.Marshal(commit.Metadata)
	if err != nil {
		return fmt.Errorf("encode commit metadata: %w", err)
	}

	query := `
		INSERT INTO commits (project_id, hash, short_hash, message, author_name,
			author_email, authored_at, committer_name, committer_email, committed_at,
			branch, parents, is_merge, files_changed, insertions, deletions,
			commit_type, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`
	var id int64
	err = s.db.QueryRowContext(ctx, query,
		commit.ProjectID, commit.Hash, commit.ShortHash, commit.Message,
		commit.AuthorName, commit.AuthorEmail, commit.AuthoredAt,
		commit.CommitterName, commit.CommitterEmail, commit.CommittedAt,
		commit.Branch, pq.Array(commit.Parents), commit.IsMerge,
		commit.FilesChanged, commit.Insertions, commit.Deletions,
		string(commit.Type), pq.Array(commit.Tags), metadata).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert commit %s: %w", commit.Hash, err)
	}
	commit.ID = id
	return nil
}

func (s *PostgresStore) CommitExists(ctx context.Context, projectID, hash string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM commits WHERE project_id = $1 AND hash = $2)`,
		projectID, hash)
	return exists, err
}

func (s *PostgresStore) CommitIDByHash(ctx context.Context, projectID, hash string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`SELECT id FROM commits WHERE project_id = $1 AND hash = $2`, projectID, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) ListCommits(ctx context.Context, projectID string, filter CommitFilter) ([]*models.Commit, error) {
	query := `SELECT id, project_id, hash, short_hash, message, author_name,
		author_email, authored_at, committer_name, committer_email, committed_at,
		branch, parents, is_merge, files_changed, insertions, deletions,
		commit_type, tags, metadata
		FROM commits WHERE project_id = $1`
	args := []interface{}{projectID}

	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(` AND committed_at >= $%d`, len(args))
	}
	if filter.Branch != "" {
		args = append(args, filter.Branch)
		query += fmt.Sprintf(` AND branch = $%d`, len(args))
	}
	if filter.Author != "" {
		args = append(args, filter.Author)
		query += fmt.Sprintf(` AND (author_name = $%d OR author_email = $%d)`, len(args), len(args))
	}
	query += ` ORDER BY committed_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []*models.Commit
	for rows.Next() {
		c := &models.Commit{}
		var parents, tags pq.StringArray
		var metadata []byte
		var commitType string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Hash, &c.ShortHash, &c.Message,
			&c.AuthorName, &c.AuthorEmail, &c.AuthoredAt, &c.CommitterName,
			&c.CommitterEmail, &c.CommittedAt, &c.Branch, &parents, &c.IsMerge,
			&c.FilesChanged, &c.Insertions, &c.Deletions, &commitType, &tags,
			&metadata); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.Parents = parents
		c.Tags = tags
		c.Type = models.CommitType(commitType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for commit %s: %w", c.Hash, err)
			}
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

func (s *PostgresStore) UpsertBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ProjectID == "" || branch.Name == "" {
		return fmt.Errorf("branch requires project id and name")
	}
	metadata, err := json.Marshal(branch.Metadata)
	if err != nil {
		return fmt.Errorf("encode branch metadata: %w", err)
	}

	query := `
		INSERT INTO branches (project_id, name, head_hash, branch_type, is_default,
			is_protected, commit_count, first_commit_at, last_commit_at, upstream,
			base_branch, merge_target, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (project_id, name) DO UPDATE SET
			head_hash = EXCLUDED.head_hash,
			branch_type = EXCLUDED.branch_type,
			is_default = EXCLUDED.is_default,
			is_protected = EXCLUDED.is_protected,
			commit_count = EXCLUDED.commit_count,
			first_commit_at = EXCLUDED.first_commit_at,
			last_commit_at = EXCLUDED.last_commit_at,
			upstream = EXCLUDED.upstream,
			base_branch = EXCLUDED.base_branch,
			merge_target = EXCLUDED.merge_target,
			metadata = EXCLUDED.metadata
	`
	_, err = s.db.ExecContext(ctx, query,
		branch.ProjectID, branch.Name, branch.HeadHash, string(branch.Type),
		branch.IsDefault, branch.IsProtected, branch.CommitCount,
		branch.FirstCommitAt, branch.LastCommitAt, branch.Upstream,
		branch.BaseBranch, branch.MergeTarget, metadata)
	if err != nil {
		return fmt.Errorf("upsert branch %s: %w", branch.Name, err)
	}
	return nil
}

func (s *PostgresStore) ListBranches(ctx context.Context, projectID string) ([]*models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, name, head_hash,
		branch_type, is_default, is_protected, commit_count, first_commit_at,
		last_commit_at, upstream, base_branch, merge_target, metadata
		FROM branches WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		b := &models.Branch{}
		var branchType string
		var metadata []byte
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Name, &b.HeadHash, &branchType,
			&b.IsDefault, &b.IsProtected, &b.CommitCount, &b.FirstCommitAt,
			&b.LastCommitAt, &b.Upstream, &b.BaseBranch, &b.MergeTarget,
			&metadata); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		b.Type = models.BranchType(branchType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for branch %s: %w", b.Name, err)
			}
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (s *PostgresStore) SaveFileChange(ctx context.Context, fc *models.FileChange) error {
	if fc.ID == "" || fc.CommitID == 0 || fc.Path == "" {
		return fmt.Errorf("file change requires id, commit id, and path")
	}
	metadata, err := json.Marshal(fc.Metadata)
	if err != nil {
		return fmt.Errorf("encode file change metadata: %w", err)
	}

	query := `INSERT INTO file_changes (id, commit_id, path, old_path, change_type,
		lines_added, lines_removed, is_binary, is_generated, file_size, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.db.ExecContext(ctx, query,
		fc.ID, fc.CommitID, fc.Path, fc.OldPath, string(fc.ChangeType),
		fc.LinesAdded, fc.LinesRemoved, fc.IsBinary, fc.IsGenerated,
		fc.FileSize, metadata)
	if err != nil {
		return fmt.Errorf("insert file change %s: %w", fc.Path, err)
	}
	return nil
}

func (s *PostgresStore) ListFileChanges(ctx context.Context, commitID int64) ([]*models.FileChange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, commit_id, path, old_path,
		change_type, lines_added, lines_removed, is_binary, is_generated,
		file_size, metadata
		FROM file_changes WHERE commit_id = $1`, commitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*models.FileChange
	for rows.Next() {
		fc := &models.FileChange{}
		var changeType string
		var metadata []byte
		if err := rows.Scan(&fc.ID, &fc.CommitID, &fc.Path, &fc.OldPath, &changeType,
			&fc.LinesAdded, &fc.LinesRemoved, &fc.IsBinary, &fc.IsGenerated,
			&fc.FileSize, &metadata); err != nil {
			return nil, fmt.Errorf("scan file change: %w", err)
		}
		fc.ChangeType = models.ChangeType(changeType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &fc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for file change %s: %w", fc.ID, err)
			}
		}
		changes = append(changes, fc)
	}
	return changes, rows.Err()
}

func (s *PostgresStore) FileAggregates(ctx context.Context, projectID string, since *time.Time, minChanges int) ([]models.FileAggregate, error) {
	query := `
		SELECT fc.path AS path,
			COUNT(*) AS change_count,
			COUNT(DISTINCT c.author_email) AS contributors,
			COALESCE(SUM(fc.lines_added + fc.lines_removed), 0) AS total_lines,
			COALESCE(AVG(fc.lines_added + fc.lines_removed), 0) AS avg_change_size,
			MAX(c.committed_at) AS last_changed_at
		FROM file_changes fc
		JOIN commits c ON c.id = fc.commit_id
		WHERE c.project_id = $1`
	args := []interface{}{projectID}

	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(` AND c.committed_at >= $%d`, len(args))
	}
	args = append(args, minChanges)
	query += fmt.Sprintf(` GROUP BY fc.path HAVING COUNT(*) >= $%d`, len(args))

	var aggregates []models.FileAggregate
	if err := s.db.SelectContext(ctx, &aggregates, query, args...); err != nil {
		return nil, err
	}
	return aggregates, nil
}

func (s *PostgresStore) SessionLinkByPair(ctx context.Context, commitID int64, sessionID string) (*models.SessionLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, commit_id, session_id, link_type,
		confidence, time_proximity_min, author_match, metadata
		FROM session_links WHERE commit_id = $1 AND session_id = $2`,
		commitID, sessionID)

	l := &models.SessionLink{}
	var metadata []byte
	err := row.Scan(&l.ID, &l.CommitID, &l.SessionID, &l.LinkType, &l.Confidence,
		&l.TimeProximityMin, &l.AuthorMatch, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &l.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for session link %s: %w", l.ID, err)
		}
	}
	return l, nil
}

func (s *PostgresStore) CreateSessionLink(ctx context.Context, link *models.SessionLink) error {
	if link.ID == "" || link.CommitID == 0 || link.SessionID == "" {
		return fmt.Errorf("session link requires id, commit id, and session id")
	}
	metadata, err := json.Marshal(link.Metadata)
	if err != nil {
		return fmt.Errorf("encode session link metadata: %w", err)
	}

	query := `INSERT INTO session_links (id, commit_id, session_id, link_type,
		confidence, time_proximity_min, author_match, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.ExecContext(ctx, query,
		link.ID, link.CommitID, link.SessionID, link.LinkType, link.Confidence,
		link.TimeProximityMin, link.AuthorMatch, metadata)
	if err != nil {
		return fmt.Errorf("insert session link: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSessionLink(ctx context.Context, link *models.SessionLink) error {
	metadata, err := json.Marshal(link.Metadata)
	if err != nil {
		return fmt.Errorf("encode session link metadata: %w", err)
	}

	query := `UPDATE session_links SET link_type = $1, confidence = $2,
		time_proximity_min = $3, author_match = $4, metadata = $5
		WHERE commit_id = $6 AND session_id = $7`
	res, err := s.db.ExecContext(ctx, query,
		link.LinkType, link.Confidence, link.TimeProximityMin, link.AuthorMatch,
		metadata, link.CommitID, link.SessionID)
	if err != nil {
		return fmt.Errorf("update session link: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSessionLinks(ctx context.Context, projectID string) ([]*models.SessionLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sl.id, sl.commit_id, sl.session_id,
		sl.link_type, sl.confidence, sl.time_proximity_min, sl.author_match, sl.metadata
		FROM session_links sl
		JOIN commits c ON c.id = sl.commit_id
		WHERE c.project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.SessionLink
	for rows.Next() {
		l := &models.SessionLink{}
		var metadata []byte
		if err := rows.Scan(&l.ID, &l.CommitID, &l.SessionID, &l.LinkType,
			&l.Confidence, &l.TimeProximityMin, &l.AuthorMatch, &metadata); err != nil {
			return nil, fmt.Errorf("scan session link: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &l.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for session link %s: %w", l.ID, err)
			}
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *PostgresStore) ListSessions(ctx context.Context, projectID string) ([]models.Session, error) {
	var sessions []models.Session
	query := `SELECT id, project_id, started_at, ended_at, actor
		FROM sessions WHERE project_id = $1 ORDER BY started_at`
	if err := s.db.SelectContext(ctx, &sessions, query, projectID); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (id, project_id, started_at, ended_at, actor)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET ended_at = EXCLUDED.ended_at, actor = EXCLUDED.actor`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.ProjectID, session.StartedAt, session.EndedAt, session.Actor)
	return err
}
