// Package runstore records exploration runs and their intents in SQLite.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/discochess/lookahead/internal/intent"
)

// ErrNotFound indicates an unknown run ID.
var ErrNotFound = errors.New("runstore: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	root_fen         TEXT NOT NULL,
	root_key         TEXT NOT NULL,
	played           TEXT,
	classification   TEXT,
	stopping_reason  TEXT NOT NULL,
	nodes_explored   INTEGER NOT NULL,
	nodes_skipped    INTEGER NOT NULL,
	cache_hits       INTEGER NOT NULL,
	max_depth        INTEGER NOT NULL,
	elapsed_ms       INTEGER NOT NULL,
	provider_version TEXT,
	warnings_json    TEXT,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS intents (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	type         TEXT NOT NULL,
	ply          INTEGER NOT NULL,
	priority     REAL NOT NULL,
	mandatory    INTEGER NOT NULL,
	intent_json  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS intents_run ON intents(run_id, seq);
`

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one recorded exploration.
type Run struct {
	ID              string
	RootFEN         string
	RootKey         string
	Played          string
	Classification  string
	StoppingReason  string
	NodesExplored   int
	NodesSkipped    int
	CacheHits       int
	MaxDepth        int
	Elapsed         time.Duration
	ProviderVersion string
	Warnings        []string
	CreatedAt       time.Time
	Intents         []intent.Intent
}

// Store is a SQLite-backed run store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records r and its intents. An empty ID is assigned a new UUID and a
// zero CreatedAt is set to now; both are written back to r.
func (s *Store) Save(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, root_fen, root_key, played, classification, stopping_reason,
			nodes_explored, nodes_skipped, cache_hits, max_depth, elapsed_ms, provider_version,
			warnings_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RootFEN, r.RootKey, r.Played, r.Classification, r.StoppingReason,
		r.NodesExplored, r.NodesSkipped, r.CacheHits, r.MaxDepth, r.Elapsed.Milliseconds(),
		r.ProviderVersion, string(warnings), r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, in := range r.Intents {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal intent %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO intents (run_id, seq, type, ply, priority, mandatory, intent_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, string(in.Type), in.Ply, in.Priority, in.Mandatory, string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert intent %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const runColumns = `run_id, root_fen, root_key, played, classification, stopping_reason,
	nodes_explored, nodes_skipped, cache_hits, max_depth, elapsed_ms, provider_version,
	warnings_json, created_at`

// List returns up to limit runs, newest first, without their intents.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run with its intents.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Intents, err = s.Intents(ctx, id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Intents returns the intents of a run in their saved order.
func (s *Store) Intents(ctx context.Context, runID string) ([]intent.Intent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent_json FROM intents WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer rows.Close()

	var out []intent.Intent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		var in intent.Intent
		if err := json.Unmarshal([]byte(payload), &in); err != nil {
			return nil, fmt.Errorf("decode intent: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                             Run
		played, class, version, warns sql.NullString
		elapsedMS                     int64
		createdAt                     string
	)
	err := sc.Scan(&r.ID, &r.RootFEN, &r.RootKey, &played, &class, &r.StoppingReason,
		&r.NodesExplored, &r.NodesSkipped, &r.CacheHits, &r.MaxDepth, &elapsedMS, &version,
		&warns, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	r.Played = played.String
	r.Classification = class.String
	r.ProviderVersion = version.String
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if warns.Valid && warns.String != "" {
		if err := json.Unmarshal([]byte(warns.String), &r.Warnings); err != nil {
			return Run{}, fmt.Errorf("decode warnings: %w", err)
		}
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}
