package survey

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("questionnaire response not found")

// Store keeps questionnaire responses in SQLite. Nothing in the voice
// pipeline reads from it.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS responses (
			id           TEXT PRIMARY KEY,
			submitted_at INTEGER NOT NULL,
			answers      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_submitted ON responses(submitted_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, r Response) error {
	raw, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses (id, submitted_at, answers) VALUES (?, ?, ?)`,
		r.ID, r.SubmittedAt.UnixMilli(), string(raw))
	return err
}

func (s *Store) Get(ctx context.Context, id string) (Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, submitted_at, answers FROM responses WHERE id = ?`, id)

	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, ErrNotFound
	}
	return r, err
}

// List returns the newest responses first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Response, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, submitted_at, answers FROM responses ORDER BY submitted_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (Response, error) {
	var (
		r   Response
		ts  int64
		raw string
	)
	if err := row.Scan(&r.ID, &ts, &raw); err != nil {
		return Response{}, err
	}
	r.SubmittedAt = time.UnixMilli(ts).UTC()
	if err := json.Unmarshal([]byte(raw), &r.Answers); err != nil {
		return Response{}, fmt.Errorf("decode answers of %s: %w", r.ID, err)
	}
	return r, nil
}
