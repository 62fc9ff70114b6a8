// Package graph persists the exploration map: page states as nodes and
// executed actions as directed edges between them. The store is a property
// graph over SQLite, keyed by session so repeated runs against the same site
// stay distinguishable.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cartograph/internal/logging"
)

// Store owns the SQLite connection for one exploration workspace.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the graph database at path, creating parent
// directories as needed. The connection is tuned for a single writer with
// WAL journaling, matching how the exploration loop uses it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create graph dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logging.GraphDebug("opened graph store at %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS states (
		url            TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		fingerprint    TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		last_visited   TEXT NOT NULL,
		PRIMARY KEY (url, session_id)
	);
	CREATE TABLE IF NOT EXISTS transitions (
		from_url       TEXT NOT NULL,
		to_url         TEXT NOT NULL,
		action         TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		selector       TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		last_traversed TEXT NOT NULL,
		PRIMARY KEY (from_url, to_url, action, session_id, selector)
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);
	CREATE INDEX IF NOT EXISTS idx_states_session ON states(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate graph schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string { return s.path }

// QueryKind discriminates the pending-write union.
type QueryKind string

const (
	QueryMergeState      QueryKind = "merge_state"
	QueryMergeTransition QueryKind = "merge_transition"
)

// Query is one idempotent graph write, planned by the execute phase and
// flushed by the persist phase.
type Query struct {
	Kind QueryKind

	// merge_state
	URL         string
	Fingerprint string

	// merge_transition
	FromURL  string
	ToURL    string
	Action   string
	Selector string

	SessionID string
}

// MergeState builds an idempotent node upsert.
func MergeState(url, fingerprint, sessionID string) Query {
	return Query{Kind: QueryMergeState, URL: url, Fingerprint: fingerprint, SessionID: sessionID}
}

// MergeTransition builds an idempotent edge upsert.
func MergeTransition(from, to, action, selector, sessionID string) Query {
	return Query{
		Kind:      QueryMergeTransition,
		FromURL:   from,
		ToURL:     to,
		Action:    action,
		Selector:  selector,
		SessionID: sessionID,
	}
}

// WriteBatch applies all queries inside one transaction. Either every write
// lands or none does; re-running the same batch is a no-op apart from
// last-visited timestamps.
func (s *Store) WriteBatch(ctx context.Context, queries []Query) error {
	if len(queries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graph tx: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, q := range queries {
		switch q.Kind {
		case QueryMergeState:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO states (url, session_id, fingerprint, created_at, last_visited)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (url, session_id) DO UPDATE SET
					fingerprint = excluded.fingerprint,
					last_visited = excluded.last_visited`,
				q.URL, q.SessionID, q.Fingerprint, now, now)
		case QueryMergeTransition:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO transitions (from_url, to_url, action, session_id, selector, created_at, last_traversed)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (from_url, to_url, action, session_id, selector) DO UPDATE SET
					last_traversed = excluded.last_traversed`,
				q.FromURL, q.ToURL, q.Action, q.SessionID, q.Selector, now, now)
		default:
			err = fmt.Errorf("unknown query kind %q", q.Kind)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("apply %s: %w", q.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit graph tx: %w", err)
	}
	logging.GraphDebug("flushed %d graph queries", len(queries))
	return nil
}

// TransitionExists reports whether an edge with this identity has already
// been recorded for the session. An empty selector matches edges regardless
// of their selector.
func (s *Store) TransitionExists(ctx context.Context, from, to, action, selector, sessionID string) (bool, error) {
	query := `
		SELECT COUNT(1) FROM transitions
		WHERE from_url = ? AND to_url = ? AND action = ? AND session_id = ?`
	args := []any{from, to, action, sessionID}
	if selector != "" {
		query += ` AND selector = ?`
		args = append(args, selector)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check transition: %w", err)
	}
	return n > 0, nil
}

// State is one recorded page node.
type State struct {
	URL         string `json:"url"`
	SessionID   string `json:"sessionId"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"createdAt"`
	LastVisited string `json:"lastVisited"`
}

// Transition is one recorded edge.
type Transition struct {
	FromURL       string `json:"fromUrl"`
	ToURL         string `json:"toUrl"`
	Action        string `json:"action"`
	SessionID     string `json:"sessionId"`
	Selector      string `json:"selector"`
	CreatedAt     string `json:"createdAt"`
	LastTraversed string `json:"lastTraversed"`
}

// States returns every node, optionally filtered by session.
func (s *Store) States(ctx context.Context, sessionID string) ([]State, error) {
	query := `SELECT url, session_id, fingerprint, created_at, last_visited FROM states`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY url`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()
	var out []State
	for rows.Next() {
		var st State
		if err := rows.Scan(&st.URL, &st.SessionID, &st.Fingerprint, &st.CreatedAt, &st.LastVisited); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Transitions returns every edge, optionally filtered by session.
func (s *Store) Transitions(ctx context.Context, sessionID string) ([]Transition, error) {
	query := `SELECT from_url, to_url, action, session_id, selector, created_at, last_traversed FROM transitions`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY from_url, to_url`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()
	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.FromURL, &tr.ToURL, &tr.Action, &tr.SessionID, &tr.Selector, &tr.CreatedAt, &tr.LastTraversed); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
