// Package store persists match and odds history in a local sqlite database.
// Schema creation is idempotent; the engine core never writes here, callers
// record results downstream of a run.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const matchesTableSQL = `
CREATE TABLE IF NOT EXISTS matches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    home_team TEXT NOT NULL,
    away_team TEXT NOT NULL,
    league TEXT NOT NULL,
    match_datetime TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'scheduled',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(home_team, away_team, league, match_datetime)
);`

const oddsTableSQL = `
CREATE TABLE IF NOT EXISTS odds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id INTEGER NOT NULL,
    bookmaker TEXT NOT NULL,
    market TEXT NOT NULL,
    selection TEXT NOT NULL,
    line TEXT NOT NULL DEFAULT '',
    odd_value REAL NOT NULL,
    extracted_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (match_id) REFERENCES matches (id) ON DELETE CASCADE
);`

var indexSQL = []string{
	"CREATE INDEX IF NOT EXISTS idx_odds_match_bookmaker ON odds(match_id, bookmaker);",
	"CREATE INDEX IF NOT EXISTS idx_odds_match_extracted ON odds(match_id, extracted_at);",
}

// Store wraps the sqlite connection for odds history.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open connects to the database at path, enabling foreign keys, and ensures
// the schema exists. The parent directory is created when missing.
func Open(path string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database ready", zap.String("path", path))
	return s, nil
}

func (s *Store) createSchema() error {
	for _, stmt := range append([]string{matchesTableSQL, oddsTableSQL}, indexSQL...) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// UpsertMatch inserts a match if it does not exist yet and returns its id.
// The unique key is (home, away, league, datetime).
func (s *Store) UpsertMatch(ctx context.Context, home, away, league string, matchTime time.Time) (int64, error) {
	ts := matchTime.UTC().Format("2006-01-02T15:04:05Z")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (home_team, away_team, league, match_datetime)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(home_team, away_team, league, match_datetime)
		 DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		home, away, league, ts)
	if err != nil {
		return 0, fmt.Errorf("upsert match: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM matches
		 WHERE home_team = ? AND away_team = ? AND league = ? AND match_datetime = ?`,
		home, away, league, ts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup match id: %w", err)
	}
	return id, nil
}

// InsertOdd appends one odds snapshot for a match.
func (s *Store) InsertOdd(ctx context.Context, matchID int64, bookmaker, market, selection, line string, oddValue float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO odds (match_id, bookmaker, market, selection, line, odd_value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		matchID, bookmaker, market, selection, line, oddValue)
	if err != nil {
		return fmt.Errorf("insert odd: %w", err)
	}
	return nil
}

// OddsCount returns the number of stored snapshots for a match.
func (s *Store) OddsCount(ctx context.Context, matchID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM odds WHERE match_id = ?", matchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count odds: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error { return s.db.Close() }
