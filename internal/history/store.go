// Package history persists a record of every poll pollbot has posted.
//
// The store is optional: a nil *Store ignores appends, so callers never
// branch on whether persistence is configured.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pollbot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Record is one posted poll. Keep it compact and schema-stable.
type Record struct {
	TweetID         string
	Title           string
	OptionCount     int
	DurationMinutes int
	ReplyThread     bool
	PostedAt        time.Time
}

type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open creates or opens the sqlite database at path and applies the
// embedded migrations.
func Open(path string, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one posted-poll record. Nil-safe no-op when the store is
// not configured.
func (s *Store) Append(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return nil
	}
	if r.PostedAt.IsZero() {
		r.PostedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posted_polls(tweet_id, title, option_count, duration_minutes, reply_thread, posted_at)
		 VALUES(?,?,?,?,?,?)`,
		r.TweetID, r.Title, r.OptionCount, r.DurationMinutes, boolInt(r.ReplyThread),
		r.PostedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tweet_id, title, option_count, duration_minutes, reply_thread, posted_at
		 FROM posted_polls ORDER BY posted_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var reply int
		var at string
		if err := rows.Scan(&r.TweetID, &r.Title, &r.OptionCount, &r.DurationMinutes, &reply, &at); err != nil {
			return nil, err
		}
		r.ReplyThread = reply != 0
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("history: bad posted_at %q: %w", at, err)
		}
		r.PostedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
