package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceStore issues durable document/journal/movement numbers from a
// counter keyed by (prefix, date). The increment is a single atomic upsert so
// concurrent callers never observe the same value.
type SequenceStore struct {
	pool *pgxpool.Pool
}

// NewSequenceStore constructs the store.
func NewSequenceStore(pool *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// Next returns the formatted number for prefix and date, e.g. JE-20260830-0004.
func (s *SequenceStore) Next(ctx context.Context, prefix string, date time.Time) (string, error) {
	if s == nil || s.pool == nil {
		return "", errors.New("sequence store not initialised")
	}
	if prefix == "" {
		return "", errors.New("sequence prefix required")
	}
	day := date.UTC().Format("2006-01-02")
	var value int64
	err := s.pool.QueryRow(ctx, `INSERT INTO sequences (prefix, seq_date, value) VALUES ($1, $2, 1)
ON CONFLICT (prefix, seq_date) DO UPDATE SET value = sequences.value + 1
RETURNING value`, prefix, day).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("shared: next sequence: %w", err)
	}
	return FormatNumber(prefix, date, value), nil
}

// FormatNumber renders a sequence value using the shared numbering scheme.
func FormatNumber(prefix string, date time.Time, value int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, date.UTC().Format("20060102"), value)
}
