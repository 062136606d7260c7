// Package store persists the canonical catalog, listings and evaluations in
// a single sqlite file. Catalog writes are append-only: aliases and products
// are added, canonical keys are never rewritten, evaluations are never
// updated.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that matched nothing.
var ErrNotFound = errors.New("not found")

type Store struct {
	sql *sql.DB
}

func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{sql: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY,
  queries     TEXT NOT NULL,
  status      TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running','completed','failed')),
  started_at  TEXT NOT NULL,
  finished_at TEXT
);

CREATE TABLE IF NOT EXISTS products (
  id               INTEGER PRIMARY KEY,
  variant_key      TEXT NOT NULL UNIQUE,
  base_product_key TEXT NOT NULL,
  display_name     TEXT NOT NULL,
  brand            TEXT NOT NULL DEFAULT '',
  category         TEXT NOT NULL DEFAULT '',
  reference_price  REAL,
  resale_estimate  REAL,
  first_seen       TEXT NOT NULL,
  last_seen        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_base ON products(base_product_key);

CREATE TABLE IF NOT EXISTS identity_aliases (
  id          INTEGER PRIMARY KEY,
  alias       TEXT NOT NULL UNIQUE,
  variant_key TEXT NOT NULL,
  created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_aliases_key ON identity_aliases(variant_key);

CREATE TABLE IF NOT EXISTS listings (
  id            INTEGER PRIMARY KEY,
  run_id        INTEGER NOT NULL REFERENCES runs(id),
  platform      TEXT NOT NULL,
  source_id     TEXT NOT NULL,
  product_id    INTEGER NOT NULL REFERENCES products(id),
  variant_key   TEXT NOT NULL,
  title         TEXT NOT NULL,
  description   TEXT NOT NULL DEFAULT '',
  current_bid   REAL NOT NULL,
  bids_count    INTEGER NOT NULL,
  buy_now_price REAL,
  end_time      TEXT,
  url           TEXT NOT NULL DEFAULT '',
  image_url     TEXT NOT NULL DEFAULT '',
  location      TEXT NOT NULL DEFAULT '',
  seller_rating REAL,
  created_at    TEXT NOT NULL,
  UNIQUE(platform, source_id)
);
CREATE INDEX IF NOT EXISTS idx_listings_variant ON listings(variant_key, run_id);

CREATE TABLE IF NOT EXISTS evaluations (
  id               INTEGER PRIMARY KEY,
  run_id           INTEGER NOT NULL REFERENCES runs(id),
  listing_id       INTEGER NOT NULL REFERENCES listings(id),
  product_id       INTEGER NOT NULL REFERENCES products(id),
  cost_estimate    REAL NOT NULL,
  resale_price     REAL,
  expected_profit  REAL NOT NULL,
  margin_pct       REAL NOT NULL,
  deal_score       REAL NOT NULL,
  strategy         TEXT NOT NULL,
  reason           TEXT NOT NULL DEFAULT '',
  price_source     TEXT NOT NULL,
  confidence       REAL NOT NULL,
  sample_size      INTEGER NOT NULL,
  soft_cap_applied INTEGER NOT NULL CHECK (soft_cap_applied IN (0,1)),
  created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id);
`

func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// BeginRun opens a run record and returns its id.
func (s *Store) BeginRun(queries []string) (int64, error) {
	res, err := s.sql.Exec(`INSERT INTO runs(queries, started_at) VALUES(?, ?)`,
		strings.Join(queries, "\n"), now())
	if err != nil {
		return 0, fmt.Errorf("beginning run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun closes a run as completed or failed.
func (s *Store) FinishRun(runID int64, failed bool) error {
	status := "completed"
	if failed {
		status = "failed"
	}
	_, err := s.sql.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, now(), runID)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return nil
}

// LatestRunID returns the id of the most recent run, ErrNotFound when the
// store has none.
func (s *Store) LatestRunID() (int64, error) {
	var id sql.NullInt64
	if err := s.sql.QueryRow(`SELECT MAX(id) FROM runs`).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up latest run: %w", err)
	}
	if !id.Valid {
		return 0, fmt.Errorf("runs: %w", ErrNotFound)
	}
	return id.Int64, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timeOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
