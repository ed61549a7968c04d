package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
)

type memoryRepo struct {
	movements map[int64]Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{movements: make(map[int64]Movement)}
}

func (r *memoryRepo) Insert(_ context.Context, mv Movement) (int64, error) {
	r.nextID++
	mv.ID = r.nextID
	r.movements[mv.ID] = mv
	return mv.ID, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Movement, error) {
	mv, ok := r.movements[id]
	if !ok {
		return Movement{}, ErrNotFound
	}
	return mv, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id int64, from, to MovementStatus) error {
	mv, ok := r.movements[id]
	if !ok || mv.Status != from {
		return ErrInvalidStatus
	}
	mv.Status = to
	r.movements[id] = mv
	return nil
}

func (r *memoryRepo) ListPostedBySKU(_ context.Context, sku string) ([]Movement, error) {
	var out []Movement
	for _, mv := range r.movements {
		if mv.SKU == sku && mv.Status == MovementStatusPosted {
			out = append(out, mv)
		}
	}
	return out, nil
}

type stubNumbers struct{ count int }

func (n *stubNumbers) Next(_ context.Context, prefix string, date time.Time) (string, error) {
	n.count++
	return shared.FormatNumber(prefix, date, int64(n.count)), nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, StaticRegistry{"MAIN": true}, &stubNumbers{}, nil, nil)
}

func TestCreateDraftValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	base := MovementInput{
		SKU: "WIDGET", Qty: 10, UnitCost: 80,
		Source: Party("Acme"), Dest: Warehouse("MAIN"),
	}

	_, err := svc.CreateDraft(ctx, base)
	require.NoError(t, err)

	in := base
	in.SKU = ""
	_, err = svc.CreateDraft(ctx, in)
	require.Error(t, err)

	in = base
	in.Qty = 0
	_, err = svc.CreateDraft(ctx, in)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	in = base
	in.UnitCost = -1
	_, err = svc.CreateDraft(ctx, in)
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	in = base
	in.Source = Endpoint{}
	in.Dest = Endpoint{}
	_, err = svc.CreateDraft(ctx, in)
	require.ErrorIs(t, err, ErrMissingEndpoint)

	in = base
	in.Dest = Warehouse("GHOST")
	_, err = svc.CreateDraft(ctx, in)
	require.ErrorIs(t, err, ErrUnknownWarehouse)
}

func TestMovementLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	mv, err := svc.CreateDraft(ctx, MovementInput{
		SKU: "WIDGET", Qty: 50, UnitCost: 80,
		Source: Party("Acme"), Dest: Warehouse("MAIN"),
	})
	require.NoError(t, err)
	require.Equal(t, MovementStatusDraft, mv.Status)
	require.NotEmpty(t, mv.Number)

	// Posting a draft directly violates the forward-only flow.
	require.ErrorIs(t, svc.Post(ctx, mv.ID, 1), ErrInvalidStatus)

	require.NoError(t, svc.Approve(ctx, mv.ID))
	require.NoError(t, svc.Post(ctx, mv.ID, 1))

	stored, err := repo.Get(ctx, mv.ID)
	require.NoError(t, err)
	require.Equal(t, MovementStatusPosted, stored.Status)

	// Re-approving a posted movement fails; posted movements are immutable.
	require.ErrorIs(t, svc.Approve(ctx, mv.ID), ErrInvalidStatus)
}

func TestOnHandRecomputesFromPostedMovements(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt, err := svc.CreateDraft(ctx, MovementInput{
		SKU: "WIDGET", Qty: 50, UnitCost: 80,
		Source: Party("Acme"), Dest: Warehouse("MAIN"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, receipt.ID))
	require.NoError(t, svc.Post(ctx, receipt.ID, 1))

	issue, err := svc.CreateDraft(ctx, MovementInput{
		SKU: "WIDGET", Qty: 20, UnitCost: 80,
		Source: Warehouse("MAIN"), Dest: Party("Cust1"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, issue.ID))
	require.NoError(t, svc.Post(ctx, issue.ID, 1))

	row, err := svc.OnHand(ctx, "WIDGET")
	require.NoError(t, err)
	require.InDelta(t, 30.0, row.Total, 1e-9)
	require.InDelta(t, 30.0, row.ByWarehouse["MAIN"], 1e-9)
	require.Equal(t, "Cust1", row.LastCounterparty)
}
