// Package history persists analysis results for the serve mode's audit
// trail. Storage is optional: with no DSN configured the engine runs
// stateless and nothing here is touched.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
	report_id    TEXT PRIMARY KEY,
	payload_type TEXT NOT NULL,
	risk_score   INT NOT NULL,
	category     TEXT NOT NULL,
	action       TEXT NOT NULL,
	result       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scan_history_created_at_idx ON scan_history (created_at DESC);
`

// Entry is one persisted scan, summarized for listings. The full result
// document rides along as raw JSON.
type Entry struct {
	ReportID    string          `json:"report_id"`
	PayloadType string          `json:"payload_type"`
	RiskScore   int             `json:"risk_score"`
	Category    string          `json:"category"`
	Action      string          `json:"action"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store writes and reads scan history from postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to postgres and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect history store: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Save persists one scan. Duplicate report IDs are ignored; report IDs are
// generated per scan, so a conflict means a redelivered write.
func (s *Store) Save(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_history (report_id, payload_type, risk_score, category, action, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id) DO NOTHING`,
		e.ReportID, e.PayloadType, e.RiskScore, e.Category, e.Action, e.Result)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", e.ReportID, err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT report_id, payload_type, risk_score, category, action, result, created_at
		FROM scan_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ReportID, &e.PayloadType, &e.RiskScore, &e.Category,
			&e.Action, &e.Result, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
