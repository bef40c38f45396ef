// Package store persists fortunes, the short text records served by the
// scaffold's sample endpoint.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNoFortunes is returned when the fortunes table is empty.
var ErrNoFortunes = errors.New("no fortunes stored")

type Fortune struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// FortuneStore reads random fortunes from PostgreSQL.
type FortuneStore struct {
	db *sql.DB
}

// Open connects, verifies the connection, and ensures the schema and
// seed rows exist.
func Open(dsn string) (*FortuneStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &FortuneStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *FortuneStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fortunes (
		id SERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM fortunes`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []string{
		"Fortune favors the bold.",
		"The best time to plant a tree was twenty years ago. The second best time is now.",
		"A journey of a thousand miles begins with a single step.",
		"Simplicity is the ultimate sophistication.",
	}
	for _, text := range seeds {
		if _, err := s.db.Exec(`INSERT INTO fortunes (text) VALUES ($1)`, text); err != nil {
			return err
		}
	}
	return nil
}

// Random returns one uniformly chosen fortune.
func (s *FortuneStore) Random(ctx context.Context) (*Fortune, error) {
	query := `SELECT id, text, created_at FROM fortunes ORDER BY random() LIMIT 1`

	var f Fortune
	err := s.db.QueryRowContext(ctx, query).Scan(&f.ID, &f.Text, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoFortunes
		}
		return nil, err
	}
	return &f, nil
}

func (s *FortuneStore) Add(ctx context.Context, text string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO fortunes (text) VALUES ($1)`, text)
	return err
}

func (s *FortuneStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *FortuneStore) Close() error {
	return s.db.Close()
}
