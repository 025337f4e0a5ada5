// Package history keeps a record of validation runs so regressions in a
// spec can be traced over time.
//
// It uses SQLite with FTS5 full-text search over issue messages. Each run
// stores the outcome for one spec plus every error and warning it
// produced.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/specgate/internal/validate"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database file name inside the data directory.
const DBFile = "history.db"

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("history: run not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Run is one validation of one spec.
type Run struct {
	ID           string    `json:"id"`
	Project      string    `json:"project"`
	SpecPath     string    `json:"spec_path"`
	Passed       bool      `json:"passed"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Issue is a single finding stored with its run.
type Issue struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Project    string    `json:"project"`
	SpecPath   string    `json:"spec_path"`
	Severity   string    `json:"severity"`
	Validator  string    `json:"validator"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Rank       float64   `json:"rank"`
}

// IssueParams holds the input for one issue of a run.
type IssueParams struct {
	Severity   string `json:"severity"`
	Validator  string `json:"validator"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// RecordParams holds the input for Record.
type RecordParams struct {
	Project  string        `json:"project"`
	SpecPath string        `json:"spec_path"`
	Passed   bool          `json:"passed"`
	Issues   []IssueParams `json:"issues"`
}

// SearchOptions filters Search results.
type SearchOptions struct {
	Project  string `json:"project,omitempty"`
	SpecPath string `json:"spec_path,omitempty"`
	Severity string `json:"severity,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// MessageCount is a recurring issue message and how often it was seen.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Stats holds aggregate history statistics.
type Stats struct {
	TotalRuns   int            `json:"total_runs"`
	PassedRuns  int            `json:"passed_runs"`
	PassRate    float64        `json:"pass_rate"`
	TotalIssues int            `json:"total_issues"`
	TopMessages []MessageCount `json:"top_messages"`
	Projects    []string       `json:"projects,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds history store configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
	TopMessages      int
}

// DefaultConfig returns the default configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		MaxSearchResults: 50,
		TopMessages:      5,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the validation history backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// New creates a Store with the given configuration. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	if cfg.TopMessages <= 0 {
		cfg.TopMessages = 5
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFile)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT    NOT NULL UNIQUE,
			project       TEXT    NOT NULL,
			spec_path     TEXT    NOT NULL,
			passed        INTEGER NOT NULL,
			error_count   INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_spec    ON runs(project, spec_path, seq DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS issues (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT    NOT NULL,
			severity   TEXT    NOT NULL,
			validator  TEXT    NOT NULL,
			message    TEXT    NOT NULL,
			suggestion TEXT    NOT NULL DEFAULT '',
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id);

		CREATE VIRTUAL TABLE IF NOT EXISTS issues_fts USING fts5(
			message,
			suggestion,
			validator,
			content='issues',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='issues_fts_insert'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		triggers := `
			CREATE TRIGGER issues_fts_insert AFTER INSERT ON issues BEGIN
				INSERT INTO issues_fts(rowid, message, suggestion, validator)
				VALUES (new.id, new.message, new.suggestion, new.validator);
			END;

			CREATE TRIGGER issues_fts_delete AFTER DELETE ON issues BEGIN
				INSERT INTO issues_fts(issues_fts, rowid, message, suggestion, validator)
				VALUES ('delete', old.id, old.message, old.suggestion, old.validator);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
		return nil
	}
	return err
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// Record stores a run and its issues in one transaction and returns the
// new run ID. Error and warning counts are derived from the issues.
func (s *Store) Record(p RecordParams) (string, error) {
	if p.Project == "" || p.SpecPath == "" {
		return "", fmt.Errorf("history: project and spec path are required")
	}

	var errorCount, warningCount int
	for _, is := range p.Issues {
		switch is.Severity {
		case validate.SeverityError:
			errorCount++
		case validate.SeverityWarning:
			warningCount++
		default:
			return "", fmt.Errorf("history: unknown severity %q", is.Severity)
		}
	}

	id := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, project, spec_path, passed, error_count, warning_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Project, p.SpecPath, p.Passed, errorCount, warningCount, formatTime(s.now()),
	); err != nil {
		return "", fmt.Errorf("history: insert run: %w", err)
	}

	for _, is := range p.Issues {
		if _, err := tx.Exec(
			`INSERT INTO issues (run_id, severity, validator, message, suggestion) VALUES (?, ?, ?, ?, ?)`,
			id, is.Severity, is.Validator, is.Message, is.Suggestion,
		); err != nil {
			return "", fmt.Errorf("history: insert issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, project, spec_path, passed, error_count, warning_count, created_at FROM runs WHERE id = ?`, id,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RunIssues returns the issues of one run, errors first.
func (s *Store) RunIssues(runID string) ([]Issue, error) {
	return s.queryIssues(`
		SELECT i.id, i.run_id, r.project, r.spec_path, i.severity, i.validator, i.message, i.suggestion,
		       r.created_at, 0 AS rank
		FROM issues i
		JOIN runs r ON r.id = i.run_id
		WHERE i.run_id = ?
		ORDER BY CASE i.severity WHEN 'error' THEN 0 ELSE 1 END, i.id`, runID)
}

// Recent returns the most recent runs, newest first. Empty project or
// spec means no filter on that column.
func (s *Store) Recent(project, specPath string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, project, spec_path, passed, error_count, warning_count, created_at
		FROM runs
		WHERE 1=1
	`
	var args []any
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}
	if specPath != "" {
		query += " AND spec_path = ?"
		args = append(args, specPath)
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Prune keeps the newest keep runs of every spec and deletes the rest
// together with their issues. It returns the number of runs removed.
func (s *Store) Prune(keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("history: keep must not be negative")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stale := `
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY project, spec_path ORDER BY seq DESC) AS rn
			FROM runs
		) WHERE rn > ?`

	if _, err := tx.Exec(`DELETE FROM issues WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("history: prune issues: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return n, nil
}

// ─── Search (FTS5) ───────────────────────────────────────────────────────────

// Search performs full-text search across issue messages with filters.
// If the query is empty or whitespace-only, it returns the most recent
// issues instead.
func (s *Store) Search(query string, opts SearchOptions) ([]Issue, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)

	var sqlStr string
	var args []any
	if ftsQuery == "" {
		sqlStr = `
			SELECT i.id, i.run_id, r.project, r.spec_path, i.severity, i.validator, i.message, i.suggestion,
			       r.created_at, 0 AS rank
			FROM issues i
			JOIN runs r ON r.id = i.run_id
			WHERE 1=1
		`
	} else {
		sqlStr = `
			SELECT i.id, i.run_id, r.project, r.spec_path, i.severity, i.validator, i.message, i.suggestion,
			       r.created_at, fts.rank
			FROM issues_fts fts
			JOIN issues i ON i.id = fts.rowid
			JOIN runs r ON r.id = i.run_id
			WHERE issues_fts MATCH ?
		`
		args = append(args, ftsQuery)
	}

	if opts.Project != "" {
		sqlStr += " AND r.project = ?"
		args = append(args, opts.Project)
	}
	if opts.SpecPath != "" {
		sqlStr += " AND r.spec_path = ?"
		args = append(args, opts.SpecPath)
	}
	if opts.Severity != "" {
		sqlStr += " AND i.severity = ?"
		args = append(args, opts.Severity)
	}

	if ftsQuery == "" {
		sqlStr += " ORDER BY r.seq DESC, i.id LIMIT ?"
	} else {
		sqlStr += " ORDER BY fts.rank, r.seq DESC LIMIT ?"
	}
	args = append(args, limit)

	issues, err := s.queryIssues(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return issues, nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate statistics. An empty project covers every
// project.
func (s *Store) Stats(project string) (*Stats, error) {
	stats := &Stats{TopMessages: []MessageCount{}}

	where, args := "", []any{}
	if project != "" {
		where = " WHERE r.project = ?"
		args = append(args, project)
	}

	if err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(r.passed), 0) FROM runs r"+where, args...,
	).Scan(&stats.TotalRuns, &stats.PassedRuns); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if stats.TotalRuns > 0 {
		stats.PassRate = float64(stats.PassedRuns) / float64(stats.TotalRuns)
	}

	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM issues i JOIN runs r ON r.id = i.run_id"+where, args...,
	).Scan(&stats.TotalIssues); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	rows, err := s.db.Query(
		"SELECT i.message, COUNT(*) AS n FROM issues i JOIN runs r ON r.id = i.run_id"+where+
			" GROUP BY i.message ORDER BY n DESC, i.message LIMIT ?",
		append(args, s.cfg.TopMessages)...,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var mc MessageCount
		if err := rows.Scan(&mc.Message, &mc.Count); err != nil {
			return nil, err
		}
		stats.TopMessages = append(stats.TopMessages, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if project == "" {
		prows, err := s.db.Query("SELECT project FROM runs GROUP BY project ORDER BY MAX(seq) DESC")
		if err != nil {
			return stats, nil
		}
		defer func() { _ = prows.Close() }()
		for prows.Next() {
			var p string
			if err := prows.Scan(&p); err == nil {
				stats.Projects = append(stats.Projects, p)
			}
		}
	}
	return stats, nil
}

// ─── Reports ─────────────────────────────────────────────────────────────────

// ParamsFromReport converts a validation report into RecordParams.
func ParamsFromReport(project string, rep *validate.SpecReport) RecordParams {
	p := RecordParams{
		Project:  project,
		SpecPath: rep.Spec.Path,
		Passed:   rep.Passed,
	}
	for _, f := range rep.Findings() {
		p.Issues = append(p.Issues, IssueParams{
			Severity:   f.Severity,
			Validator:  f.Validator,
			Message:    f.Message,
			Suggestion: f.Suggestion,
		})
	}
	return p
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var created string
	if err := row.Scan(&r.ID, &r.Project, &r.SpecPath, &r.Passed, &r.ErrorCount, &r.WarningCount, &created); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(created)
	return &r, nil
}

func (s *Store) queryIssues(query string, args ...any) ([]Issue, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var issues []Issue
	for rows.Next() {
		var is Issue
		var created string
		if err := rows.Scan(
			&is.ID, &is.RunID, &is.Project, &is.SpecPath, &is.Severity, &is.Validator,
			&is.Message, &is.Suggestion, &created, &is.Rank,
		); err != nil {
			return nil, err
		}
		is.CreatedAt = parseTime(created)
		issues = append(issues, is)
	}
	return issues, rows.Err()
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "missing title" → `"missing" "title"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
