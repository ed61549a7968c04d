package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for documents. Extracted
// data, proposals and links are stored as JSONB; status is authoritative only
// here, never tracked in memory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, number, doc_type, status, source, extracted, proposal, links, created_at, updated_at`

// Create stores a new document.
func (r *Repository) Create(ctx context.Context, doc Document) error {
	source, err := json.Marshal(doc.Source)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO documents (id, number, doc_type, status, source, links, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, '{}', NOW(), NOW())`, doc.ID, doc.Number, string(doc.Type), string(doc.Status), source)
	return err
}

// Get loads a document by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

// List returns documents filtered by status when given.
func (r *Repository) List(ctx context.Context, status Status, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// AppendFile adds an attachment to the immutable source metadata. Files are
// the only part of source that may grow.
func (r *Repository) AppendFile(ctx context.Context, id uuid.UUID, file Attachment) error {
	raw, err := json.Marshal(file)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE documents
SET source = jsonb_set(source, '{files}', COALESCE(source->'files', '[]'::jsonb) || $2::jsonb), updated_at = NOW()
WHERE id=$1`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateExtracted stores the normalized record and the resulting status.
func (r *Repository) UpdateExtracted(ctx context.Context, id uuid.UUID, extracted *Extracted, status Status) error {
	raw, err := json.Marshal(extracted)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET extracted=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, raw, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProposal replaces the proposal wholesale and sets the status. A nil
// proposal clears the column, which keeps rebuilds overwrite-only.
func (r *Repository) UpdateProposal(ctx context.Context, id uuid.UUID, proposal *Proposal, status Status) error {
	var raw []byte
	if proposal != nil {
		var err error
		raw, err = json.Marshal(proposal)
		if err != nil {
			return err
		}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET proposal=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, raw, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets the status only.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLinksIfUnset writes the posted-artifact links and status only when no
// journal has been linked yet. The conditional update is the storage-level
// at-most-once guard: of two concurrent posts, exactly one observes applied.
func (r *Repository) SetLinksIfUnset(ctx context.Context, id uuid.UUID, links Links, status Status) (bool, error) {
	raw, err := json.Marshal(links)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET links=$2, status=$3, updated_at=NOW()
WHERE id=$1 AND (links->>'journalId') IS NULL`, id, raw, string(status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc                              Document
		docType, status                  string
		source, extracted, proposal, links []byte
	)
	err := row.Scan(&doc.ID, &doc.Number, &docType, &status, &source, &extracted, &proposal, &links, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Type = Type(docType)
	doc.Status = Status(status)
	if len(source) > 0 {
		if err := json.Unmarshal(source, &doc.Source); err != nil {
			return Document{}, fmt.Errorf("documents: decode source: %w", err)
		}
	}
	if len(extracted) > 0 {
		doc.Extracted = &Extracted{}
		if err := json.Unmarshal(extracted, doc.Extracted); err != nil {
			return Document{}, fmt.Errorf("documents: decode extracted: %w", err)
		}
	}
	if len(proposal) > 0 {
		doc.Proposal = &Proposal{}
		if err := json.Unmarshal(proposal, doc.Proposal); err != nil {
			return Document{}, fmt.Errorf("documents: decode proposal: %w", err)
		}
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &doc.Links); err != nil {
			return Document{}, fmt.Errorf("documents: decode links: %w", err)
		}
	}
	return doc, nil
}
