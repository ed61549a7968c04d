package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for stock movements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a draft movement and returns its id.
func (r *Repository) Insert(ctx context.Context, mv Movement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO stock_movements
(number, moved_at, sku, qty, uom, unit_cost, source_kind, source_code, source_name, dest_kind, dest_code, dest_name, status, ref_module, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW()) RETURNING id`,
		mv.Number, mv.Date, mv.SKU, mv.Qty, mv.UoM, mv.UnitCost,
		string(mv.Source.Kind), mv.Source.Code, mv.Source.Name,
		string(mv.Dest.Kind), mv.Dest.Code, mv.Dest.Name,
		string(mv.Status), mv.RefModule, mv.RefID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads a movement by id.
func (r *Repository) Get(ctx context.Context, id int64) (Movement, error) {
	var mv Movement
	var srcKind, dstKind, status string
	err := r.pool.QueryRow(ctx, `SELECT id, number, moved_at, sku, qty, uom, unit_cost, source_kind, source_code, source_name, dest_kind, dest_code, dest_name, status, ref_module, ref_id, created_at
FROM stock_movements WHERE id=$1`, id).Scan(
		&mv.ID, &mv.Number, &mv.Date, &mv.SKU, &mv.Qty, &mv.UoM, &mv.UnitCost,
		&srcKind, &mv.Source.Code, &mv.Source.Name,
		&dstKind, &mv.Dest.Code, &mv.Dest.Name,
		&status, &mv.RefModule, &mv.RefID, &mv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrNotFound
		}
		return Movement{}, err
	}
	mv.Source.Kind = EndpointKind(srcKind)
	mv.Dest.Kind = EndpointKind(dstKind)
	mv.Status = MovementStatus(status)
	return mv, nil
}

// UpdateStatus advances a movement through draft -> approved -> posted. The
// guard on the current status makes the transition forward-only.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to MovementStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_movements SET status=$1 WHERE id=$2 AND status=$3`, string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// ListPostedBySKU returns every posted movement for one sku.
func (r *Repository) ListPostedBySKU(ctx context.Context, sku string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, moved_at, sku, qty, uom, unit_cost, source_kind, source_code, source_name, dest_kind, dest_code, dest_name, status, ref_module, ref_id, created_at
FROM stock_movements WHERE sku=$1 AND status='POSTED' ORDER BY moved_at, id`, sku)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var mv Movement
		var srcKind, dstKind, status string
		if err := rows.Scan(&mv.ID, &mv.Number, &mv.Date, &mv.SKU, &mv.Qty, &mv.UoM, &mv.UnitCost,
			&srcKind, &mv.Source.Code, &mv.Source.Name,
			&dstKind, &mv.Dest.Code, &mv.Dest.Name,
			&status, &mv.RefModule, &mv.RefID, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.Source.Kind = EndpointKind(srcKind)
		mv.Dest.Kind = EndpointKind(dstKind)
		mv.Status = MovementStatus(status)
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}
