// Package journal keeps a local history of sync runs in SQLite: one row
// per run, the status transitions it made, and a snapshot of node titles
// indexed with FTS5 so plan items can be searched by keyword.
//
// The journal is an audit trail only. The state file stays the source of
// truth; deleting the database loses history, never statuses.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests to pin run timestamps.
var timeNow = time.Now

// ─── Types ───────────────────────────────────────────────────────────────────

// Config holds journal settings.
type Config struct {
	Path             string // database file
	MaxSearchResults int
}

// DefaultConfig returns the journal config for a project root.
func DefaultConfig(root string) Config {
	return Config{
		Path:             filepath.Join(root, ".plansync", "journal.db"),
		MaxSearchResults: 50,
	}
}

// Transition is one status change made by a run.
type Transition struct {
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
	From  string `json:"from"`
	To    string `json:"to"`
	Cause string `json:"cause"` // set, propagated, reopened, coerced, added
}

// Node is one outline node as of the latest run.
type Node struct {
	Code   string `json:"code"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Run is everything recorded about a single sync.
type Run struct {
	ID          string       `json:"id"`
	Trigger     string       `json:"trigger"` // cli, set, watch, mcp
	Checksum    string       `json:"checksum"`
	Total       int          `json:"total"`
	Completed   int          `json:"completed"`
	InProgress  int          `json:"in_progress"`
	Pruned      []string     `json:"pruned,omitempty"`
	Transitions []Transition `json:"transitions,omitempty"`
	Nodes       []Node       `json:"-"`
	CreatedAt   string       `json:"created_at"`
}

// RunSummary is a compact history row.
type RunSummary struct {
	ID              string `json:"id"`
	Trigger         string `json:"trigger"`
	Checksum        string `json:"checksum"`
	Total           int    `json:"total"`
	Completed       int    `json:"completed"`
	InProgress      int    `json:"in_progress"`
	PrunedCount     int    `json:"pruned_count"`
	TransitionCount int    `json:"transition_count"`
	CreatedAt       string `json:"created_at"`
}

// CodeTransition is a transition together with the run it belongs to.
type CodeTransition struct {
	Transition
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
}

// SearchResult embeds a Node with its FTS5 rank.
type SearchResult struct {
	Node
	Rank float64 `json:"rank"`
}

// Store is the SQLite-backed journal.
type Store struct {
	db  *sql.DB
	cfg Config
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// New opens (creating if needed) the journal database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
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
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
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
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT    NOT NULL UNIQUE,
			origin      TEXT    NOT NULL,
			checksum    TEXT    NOT NULL,
			total       INTEGER NOT NULL DEFAULT 0,
			completed   INTEGER NOT NULL DEFAULT 0,
			in_progress INTEGER NOT NULL DEFAULT 0,
			pruned      TEXT    NOT NULL DEFAULT '',
			created_at  TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS transitions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT    NOT NULL,
			code        TEXT    NOT NULL,
			title       TEXT    NOT NULL DEFAULT '',
			from_status TEXT    NOT NULL,
			to_status   TEXT    NOT NULL,
			cause       TEXT    NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_transitions_run  ON transitions(run_id);
		CREATE INDEX IF NOT EXISTS idx_transitions_code ON transitions(code);

		CREATE TABLE IF NOT EXISTS nodes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			code       TEXT    NOT NULL UNIQUE,
			kind       TEXT    NOT NULL,
			title      TEXT    NOT NULL,
			status     TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			code,
			title,
			content='nodes',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='nodes_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER nodes_fts_insert AFTER INSERT ON nodes BEGIN
				INSERT INTO nodes_fts(rowid, code, title) VALUES (new.id, new.code, new.title);
			END;

			CREATE TRIGGER nodes_fts_delete AFTER DELETE ON nodes BEGIN
				INSERT INTO nodes_fts(nodes_fts, rowid, code, title) VALUES ('delete', old.id, old.code, old.title);
			END;

			CREATE TRIGGER nodes_fts_update AFTER UPDATE ON nodes BEGIN
				INSERT INTO nodes_fts(nodes_fts, rowid, code, title) VALUES ('delete', old.id, old.code, old.title);
				INSERT INTO nodes_fts(rowid, code, title) VALUES (new.id, new.code, new.title);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// RecordRun stores a run, its transitions and the node snapshot in one
// transaction. It assigns an ID and timestamp when the run has none and
// returns the ID.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = timeNow().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, origin, checksum, total, completed, in_progress, pruned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.Checksum, run.Total, run.Completed, run.InProgress,
		strings.Join(run.Pruned, ","), run.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}

	for _, t := range run.Transitions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (run_id, code, title, from_status, to_status, cause)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, t.Code, t.Title, t.From, t.To, t.Cause,
		); err != nil {
			return "", fmt.Errorf("journal: insert transition %s: %w", t.Code, err)
		}
	}

	if run.Nodes != nil {
		if err := replaceNodes(ctx, tx, run.Nodes, run.CreatedAt); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("journal: commit: %w", err)
	}
	return run.ID, nil
}

// replaceNodes upserts the snapshot and removes codes that left the plan.
func replaceNodes(ctx context.Context, tx *sql.Tx, nodes []Node, at string) error {
	keep := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		keep[n.Code] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (code, kind, title, status, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET
				kind = excluded.kind, title = excluded.title,
				status = excluded.status, updated_at = excluded.updated_at
			 WHERE nodes.kind != excluded.kind OR nodes.title != excluded.title OR nodes.status != excluded.status`,
			n.Code, n.Kind, n.Title, n.Status, at,
		); err != nil {
			return fmt.Errorf("journal: upsert node %s: %w", n.Code, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT code FROM nodes`)
	if err != nil {
		return fmt.Errorf("journal: list nodes: %w", err)
	}
	var stale []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			_ = rows.Close()
			return err
		}
		if !keep[code] {
			stale = append(stale, code)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, code := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE code = ?`, code); err != nil {
			return fmt.Errorf("journal: delete node %s: %w", code, err)
		}
	}
	return nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.origin, r.checksum, r.total, r.completed, r.in_progress, r.pruned, r.created_at,
		       (SELECT COUNT(*) FROM transitions t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var pruned string
		if err := rows.Scan(&rs.ID, &rs.Trigger, &rs.Checksum, &rs.Total, &rs.Completed,
			&rs.InProgress, &pruned, &rs.CreatedAt, &rs.TransitionCount); err != nil {
			return nil, err
		}
		if pruned != "" {
			rs.PrunedCount = len(strings.Split(pruned, ","))
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Transitions returns the transitions recorded by one run, in insert order.
func (s *Store) Transitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, title, from_status, to_status, cause
		FROM transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Code, &t.Title, &t.From, &t.To, &t.Cause); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CodeHistory returns the transitions of a single code, newest first.
func (s *Store) CodeHistory(ctx context.Context, code string, limit int) ([]CodeTransition, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.code, t.title, t.from_status, t.to_status, t.cause, r.id, r.created_at
		FROM transitions t
		JOIN runs r ON r.id = t.run_id
		WHERE t.code = ?
		ORDER BY r.seq DESC, t.id DESC
		LIMIT ?`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: code history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CodeTransition
	for rows.Next() {
		var ct CodeTransition
		if err := rows.Scan(&ct.Code, &ct.Title, &ct.From, &ct.To, &ct.Cause, &ct.RunID, &ct.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// ─── Search ──────────────────────────────────────────────────────────────────

// Search finds nodes whose code or title match query, best match first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.code, n.kind, n.title, n.status, fts.rank
		FROM nodes_fts fts
		JOIN nodes n ON n.id = fts.rowid
		WHERE nodes_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		var sr SearchResult
		if err := rows.Scan(&sr.Code, &sr.Kind, &sr.Title, &sr.Status, &sr.Rank); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "parser bug" → `"parser" "bug"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w != "" {
			words = append(words, `"`+w+`"`)
		}
	}
	return strings.Join(words, " ")
}
