package stock

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry resolves warehouse codes against the warehouses table. Codes are
// short uppercase tokens, but membership is decided by lookup, not by shape.
type Registry struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	known map[string]bool
}

// NewRegistry constructs a registry backed by PostgreSQL with a small
// positive-result cache. Warehouses are created rarely; a restart refreshes.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool, known: make(map[string]bool)}
}

// IsWarehouse reports whether code identifies an active warehouse.
func (r *Registry) IsWarehouse(ctx context.Context, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, nil
	}
	r.mu.RLock()
	if r.known[code] {
		r.mu.RUnlock()
		return true, nil
	}
	r.mu.RUnlock()
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE code=$1 AND active)`, code).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		r.mu.Lock()
		r.known[code] = true
		r.mu.Unlock()
	}
	return exists, nil
}

// StaticRegistry is a fixed in-memory registry, used by tests and seeds.
type StaticRegistry map[string]bool

// IsWarehouse implements WarehouseLookup.
func (s StaticRegistry) IsWarehouse(_ context.Context, code string) (bool, error) {
	return s[strings.ToUpper(strings.TrimSpace(code))], nil
}
