package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/models"
)

// SQLiteStore implements storage using SQLite (for local/development).
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		hash TEXT NOT NULL,
		short_hash TEXT,
		message TEXT,
		author_name TEXT,
		author_email TEXT,
		authored_at DATETIME,
		committer_name TEXT,
		committer_email TEXT,
		committed_at DATETIME,
		branch TEXT,
		parents TEXT,
		is_merge INTEGER DEFAULT 0,
		files_changed INTEGER DEFAULT 0,
		insertions INTEGER DEFAULT 0,
		deletions INTEGER DEFAULT 0,
		commit_type TEXT,
		tags TEXT,
		metadata TEXT,
		UNIQUE (project_id, hash)
	);

	CREATE TABLE IF NOT EXISTS branches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		head_hash TEXT,
		branch_type TEXT,
		is_default INTEGER DEFAULT 0,
		is_protected INTEGER DEFAULT 0,
		commit_count INTEGER DEFAULT 0,
		first_commit_at DATETIME,
		last_commit_at DATETIME,
		upstream TEXT,
		base_branch TEXT,
		merge_target TEXT,
		metadata TEXT,
		UNIQUE (project_id, name)
	);

	CREATE TABLE IF NOT EXISTS file_changes (
		id TEXT PRIMARY KEY,
		commit_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		old_path TEXT,
		change_type TEXT,
		lines_added INTEGER DEFAULT 0,
		lines_removed INTEGER DEFAULT 0,
		is_binary INTEGER DEFAULT 0,
		is_generated INTEGER DEFAULT 0,
		file_size INTEGER,
		metadata TEXT,
		FOREIGN KEY (commit_id) REFERENCES commits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS session_links (
		id TEXT PRIMARY KEY,
		commit_id INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		link_type TEXT,
		confidence REAL DEFAULT 0,
		time_proximity_min REAL DEFAULT 0,
		author_match INTEGER DEFAULT 0,
		metadata TEXT,
		UNIQUE (commit_id, session_id),
		FOREIGN KEY (commit_id) REFERENCES commits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const commitColumns = `project_id, hash, short_hash, message, author_name, author_email,
	authored_at, committer_name, committer_email, committed_at, branch, parents,
	is_merge, files_changed, insertions, deletions, commit_type, tags, metadata`

func (s *SQLiteStore) SaveCommit(ctx context.Context, commit *models.Commit) error {
	row, err := commitToRow(commit)
	if err != nil {
		return err
	}

	query := `INSERT INTO commits (` + commitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		row.ProjectID, row.Hash, row.ShortHash, row.Message, row.AuthorName,
		row.AuthorEmail, row.AuthoredAt, row.CommitterName, row.CommitterEmail,
		row.CommittedAt, row.Branch, row.Parents, row.IsMerge, row.FilesChanged,
		row.Insertions, row.Deletions, row.CommitType, row.Tags, row.Metadata)
	if err != nil {
		return fmt.Errorf("insert commit %s: %w", commit.Hash, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("commit id for %s: %w", commit.Hash, err)
	}
	commit.ID = id
	return nil
}

func (s *SQLiteStore) CommitExists(ctx context.Context, projectID, hash string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM commits WHERE project_id = ? AND hash = ?`, projectID, hash)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteStore) CommitIDByHash(ctx context.Context, projectID, hash string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`SELECT id FROM commits WHERE project_id = ? AND hash = ?`, projectID, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) ListCommits(ctx context.Context, projectID string, filter CommitFilter) ([]*models.Commit, error) {
	query := `SELECT id, ` + commitColumns + ` FROM commits WHERE project_id = ?`
	args := []interface{}{projectID}

	if filter.Since != nil {
		query += ` AND committed_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	if filter.Branch != "" {
		query += ` AND branch = ?`
		args = append(args, filter.Branch)
	}
	if filter.Author != "" {
		query += ` AND (author_name = ? OR author_email = ?)`
		args = append(args, filter.Author, filter.Author)
	}
	query += ` ORDER BY committed_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []commitRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	commits := make([]*models.Commit, 0, len(rows))
	for i := range rows {
		c, err := commitFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func (s *SQLiteStore) UpsertBranch(ctx context.Context, branch *models.Branch) error {
	row, err := branchToRow(branch)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO branches (project_id, name, head_hash, branch_type, is_default,
			is_protected, commit_count, first_commit_at, last_commit_at, upstream,
			base_branch, merge_target, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, name) DO UPDATE SET
			head_hash = excluded.head_hash,
			branch_type = excluded.branch_type,
			is_default = excluded.is_default,
			is_protected = excluded.is_protected,
			commit_count = excluded.commit_count,
			first_commit_at = excluded.first_commit_at,
			last_commit_at = excluded.last_commit_at,
			upstream = excluded.upstream,
			base_branch = excluded.base_branch,
			merge_target = excluded.merge_target,
			metadata = excluded.metadata
	`
	_, err = s.db.ExecContext(ctx, query,
		row.ProjectID, row.Name, row.HeadHash, row.BranchType, row.IsDefault,
		row.IsProtected, row.CommitCount, row.FirstCommitAt, row.LastCommitAt,
		row.Upstream, row.BaseBranch, row.MergeTarget, row.Metadata)
	if err != nil {
		return fmt.Errorf("upsert branch %s: %w", branch.Name, err)
	}
	return nil
}

func (s *SQLiteStore) ListBranches(ctx context.Context, projectID string) ([]*models.Branch, error) {
	var rows []branchRow
	query := `SELECT id, project_id, name, head_hash, branch_type, is_default,
		is_protected, commit_count, first_commit_at, last_commit_at, upstream,
		base_branch, merge_target, metadata
		FROM branches WHERE project_id = ? ORDER BY name`
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, err
	}

	branches := make([]*models.Branch, 0, len(rows))
	for i := range rows {
		b, err := branchFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, nil
}

func (s *SQLiteStore) SaveFileChange(ctx context.Context, fc *models.FileChange) error {
	row, err := fileChangeToRow(fc)
	if err != nil {
		return err
	}

	query := `INSERT INTO file_changes (id, commit_id, path, old_path, change_type,
		lines_added, lines_removed, is_binary, is_generated, file_size, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.CommitID, row.Path, row.OldPath, row.ChangeType,
		row.LinesAdded, row.LinesRemoved, row.IsBinary, row.IsGenerated,
		row.FileSize, row.Metadata)
	if err != nil {
		return fmt.Errorf("insert file change %s: %w", fc.Path, err)
	}
	return nil
}

func (s *SQLiteStore) ListFileChanges(ctx context.Context, commitID int64) ([]*models.FileChange, error) {
	var rows []fileChangeRow
	query := `SELECT id, commit_id, path, old_path, change_type, lines_added,
		lines_removed, is_binary, is_generated, file_size, metadata
		FROM file_changes WHERE commit_id = ?`
	if err := s.db.SelectContext(ctx, &rows, query, commitID); err != nil {
		return nil, err
	}

	changes := make([]*models.FileChange, 0, len(rows))
	for i := range rows {
		fc, err := fileChangeFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}
	return changes, nil
}

// fileAggregateRow receives the aggregate query's columns. MAX() strips
// the committed_at column's DATETIME decltype, so the driver hands the
// timestamp back as TEXT and it has to be parsed here.
type fileAggregateRow struct {
	Path          string  `db:"path"`
	ChangeCount   int     `db:"change_count"`
	Contributors  int     `db:"contributors"`
	TotalLines    int     `db:"total_lines"`
	AvgChangeSize float64 `db:"avg_change_size"`
	LastChangedAt string  `db:"last_changed_at"`
}

// sqliteTimeLayouts are the TEXT timestamp forms go-sqlite3 writes.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseSQLiteTime(value string) (time.Time, error) {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sqlite timestamp %q", value)
}

func (s *SQLiteStore) FileAggregates(ctx context.Context, projectID string, since *time.Time, minChanges int) ([]models.FileAggregate, error) {
	query := `
		SELECT fc.path AS path,
			COUNT(*) AS change_count,
			COUNT(DISTINCT c.author_email) AS contributors,
			COALESCE(SUM(fc.lines_added + fc.lines_removed), 0) AS total_lines,
			COALESCE(AVG(fc.lines_added + fc.lines_removed), 0) AS avg_change_size,
			MAX(c.committed_at) AS last_changed_at
		FROM file_changes fc
		JOIN commits c ON c.id = fc.commit_id
		WHERE c.project_id = ?`
	args := []interface{}{projectID}

	if since != nil {
		query += ` AND c.committed_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY fc.path HAVING COUNT(*) >= ?`
	args = append(args, minChanges)

	var rows []fileAggregateRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	aggregates := make([]models.FileAggregate, 0, len(rows))
	for _, row := range rows {
		lastChanged, err := parseSQLiteTime(row.LastChangedAt)
		if err != nil {
			return nil, fmt.Errorf("aggregate for %s: %w", row.Path, err)
		}
		aggregates = append(aggregates, models.FileAggregate{
			Path:          row.Path,
			ChangeCount:   row.ChangeCount,
			Contributors:  row.Contributors,
			TotalLines:    row.TotalLines,
			AvgChangeSize: row.AvgChangeSize,
			LastChangedAt: lastChanged,
		})
	}
	return aggregates, nil
}

const sessionLinkColumns = `id, commit_id, session_id, link_type, confidence,
	time_proximity_min, author_match, metadata`

func (s *SQLiteStore) SessionLinkByPair(ctx context.Context, commitID int64, sessionID string) (*models.SessionLink, error) {
	var row sessionLinkRow
	query := `SELECT ` + sessionLinkColumns + ` FROM session_links
		WHERE commit_id = ? AND session_id = ?`
	err := s.db.GetContext(ctx, &row, query, commitID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sessionLinkFromRow(&row)
}

func (s *SQLiteStore) CreateSessionLink(ctx context.Context, link *models.SessionLink) error {
	row, err := sessionLinkToRow(link)
	if err != nil {
		return err
	}

	query := `INSERT INTO session_links (` + sessionLinkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.CommitID, row.SessionID, row.LinkType, row.Confidence,
		row.TimeProximityMin, row.AuthorMatch, row.Metadata)
	if err != nil {
		return fmt.Errorf("insert session link: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateSessionLink(ctx context.Context, link *models.SessionLink) error {
	row, err := sessionLinkToRow(link)
	if err != nil {
		return err
	}

	query := `UPDATE session_links SET link_type = ?, confidence = ?,
		time_proximity_min = ?, author_match = ?, metadata = ?
		WHERE commit_id = ? AND session_id = ?`
	res, err := s.db.ExecContext(ctx, query,
		row.LinkType, row.Confidence, row.TimeProximityMin, row.AuthorMatch,
		row.Metadata, row.CommitID, row.SessionID)
	if err != nil {
		return fmt.Errorf("update session link: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListSessionLinks(ctx context.Context, projectID string) ([]*models.SessionLink, error) {
	var rows []sessionLinkRow
	query := `SELECT sl.id, sl.commit_id, sl.session_id, sl.link_type, sl.confidence,
		sl.time_proximity_min, sl.author_match, sl.metadata
		FROM session_links sl
		JOIN commits c ON c.id = sl.commit_id
		WHERE c.project_id = ?`
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, err
	}

	links := make([]*models.SessionLink, 0, len(rows))
	for i := range rows {
		l, err := sessionLinkFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, projectID string) ([]models.Session, error) {
	var sessions []models.Session
	query := `SELECT id, project_id, started_at, ended_at, actor
		FROM sessions WHERE project_id = ? ORDER BY started_at`
	if err := s.db.SelectContext(ctx, &sessions, query, projectID); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (id, project_id, started_at, ended_at, actor)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET ended_at = excluded.ended_at, actor = excluded.actor`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.ProjectID, session.StartedAt.UTC(), utcPtr(session.EndedAt), session.Actor)
	return err
}
