package stock

import "context"

// WarehouseLookup answers registry membership for the aggregator. Membership
// is an explicit lookup; a party name that happens to look like a code never
// contributes to a balance.
type WarehouseLookup interface {
	IsWarehouse(ctx context.Context, code string) (bool, error)
}

// Aggregate reconstructs the on-hand row for one sku from the full set of its
// posted movements. The result is independent of movement order: signed
// contributions commute, and provenance is taken from the chronologically
// latest contributing movement (ties broken by id).
func Aggregate(ctx context.Context, sku string, movements []Movement, registry WarehouseLookup) (OnHandRow, error) {
	row := OnHandRow{SKU: sku, ByWarehouse: make(map[string]float64)}
	var lastID int64
	for _, mv := range movements {
		if mv.Status != MovementStatusPosted || mv.SKU != sku {
			continue
		}
		contributed := false
		if mv.Dest.IsWarehouse() {
			ok, err := registry.IsWarehouse(ctx, mv.Dest.Code)
			if err != nil {
				return OnHandRow{}, err
			}
			if ok {
				row.ByWarehouse[mv.Dest.Code] += mv.Qty
				row.Total += mv.Qty
				contributed = true
			}
		}
		if mv.Source.IsWarehouse() {
			ok, err := registry.IsWarehouse(ctx, mv.Source.Code)
			if err != nil {
				return OnHandRow{}, err
			}
			if ok {
				row.ByWarehouse[mv.Source.Code] -= mv.Qty
				row.Total -= mv.Qty
				contributed = true
			}
		}
		if !contributed {
			continue
		}
		if mv.Date.After(row.LastMovementAt) || (mv.Date.Equal(row.LastMovementAt) && mv.ID > lastID) {
			row.LastMovementAt = mv.Date
			lastID = mv.ID
			row.LastCounterparty = counterparty(mv)
		}
	}
	return row, nil
}

// counterparty picks the non-warehouse party name of a movement, falling back
// to a warehouse code when both sides are warehouses.
func counterparty(mv Movement) string {
	if mv.Source.IsParty() {
		return mv.Source.Name
	}
	if mv.Dest.IsParty() {
		return mv.Dest.Name
	}
	if mv.Source.IsWarehouse() {
		return mv.Source.Code
	}
	return mv.Dest.Code
}
