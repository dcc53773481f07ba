// Package scores keeps a history of finished episode scores in sqlite.
package scores

import (
	"context"
	"database/sql"
	"time"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const createTable = `
CREATE TABLE IF NOT EXISTS scores (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	score INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Entry is one recorded score.
type Entry struct {
	ID        int       `json:"id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLite is a score keeper backed by a sqlite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the score database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open score database")
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create scores table")
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// HighScore returns the best recorded score, zero when there is none.
func (s *SQLite) HighScore(ctx context.Context) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(score), 0) FROM scores`).Scan(&score)
	if err != nil {
		return 0, errors.Wrap(err, "unable to read high score")
	}
	return score, nil
}

// SubmitScore records score and reports whether it beats every score
// recorded before it.
func (s *SQLite) SubmitScore(ctx context.Context, score int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var best int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(score), 0) FROM scores`).Scan(&best)
	if err != nil {
		return false, errors.Wrap(err, "unable to read high score")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scores (score) VALUES (?)`, score); err != nil {
		return false, errors.Wrapf(err, "unable to insert score %d", score)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return score > best, nil
}

// Top returns up to limit scores, best first.
func (s *SQLite) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, score, created_at FROM scores ORDER BY score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to query scores")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
