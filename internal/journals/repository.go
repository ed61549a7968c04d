package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/db"
)

// ErrNotFound indicates a missing journal entry.
var ErrNotFound = errors.New("journals: not found")

// Repository provides PostgreSQL backed persistence for journal entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertJournalLines(ctx context.Context, journalID int64, lines []JournalLine) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get loads a journal entry with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.pool.QueryRow(ctx, `SELECT id, number, entry_date, reference, memo, source_module, source_id, posted_by, posted_at, created_at
FROM journal_entries WHERE id=$1`, id).Scan(&entry.ID, &entry.Number, &entry.Date, &entry.Reference, &entry.Memo, &entry.SourceModule, &entry.SourceID, &entry.PostedBy, &entry.PostedAt, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, journal_id, account, memo, debit, credit, created_at
FROM journal_lines WHERE journal_id=$1 ORDER BY id`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalID, &line.Account, &line.Memo, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// List returns recent journal entries without lines.
func (r *Repository) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, number, entry_date, reference, memo, source_module, source_id, posted_by, posted_at, created_at
FROM journal_entries ORDER BY posted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		if err := rows.Scan(&entry.ID, &entry.Number, &entry.Date, &entry.Reference, &entry.Memo, &entry.SourceModule, &entry.SourceID, &entry.PostedBy, &entry.PostedAt, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *txRepo) InsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, entry_date, reference, memo, source_module, source_id, posted_by, posted_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id`,
		entry.Number, entry.Date, entry.Reference, entry.Memo, entry.SourceModule, entry.SourceID, entry.PostedBy, entry.PostedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *txRepo) InsertJournalLines(ctx context.Context, journalID int64, lines []JournalLine) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (journal_id, account, memo, debit, credit, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())`, journalID, line.Account, line.Memo, line.Debit, line.Credit)
		if err != nil {
			return err
		}
	}
	return nil
}
