package stock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchRowCachesResult(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (OnHandRow, error) {
		calls++
		return OnHandRow{SKU: "WIDGET", Total: 30, ByWarehouse: map[string]float64{"MAIN": 30}}, nil
	}

	row, err := cache.FetchRow(ctx, "WIDGET", loader)
	require.NoError(t, err)
	require.InDelta(t, 30.0, row.Total, 1e-9)
	require.Equal(t, 1, calls)

	row, err = cache.FetchRow(ctx, "WIDGET", loader)
	require.NoError(t, err)
	require.InDelta(t, 30.0, row.Total, 1e-9)
	require.Equal(t, 1, calls, "second read must come from cache")
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	total := 30.0
	loader := func(context.Context) (OnHandRow, error) {
		return OnHandRow{SKU: "WIDGET", Total: total}, nil
	}

	row, err := cache.FetchRow(ctx, "WIDGET", loader)
	require.NoError(t, err)
	require.InDelta(t, 30.0, row.Total, 1e-9)

	total = 80
	require.NoError(t, cache.Bump(ctx))

	row, err = cache.FetchRow(ctx, "WIDGET", loader)
	require.NoError(t, err)
	require.InDelta(t, 80.0, row.Total, 1e-9)
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	var cache *Cache
	row, err := cache.FetchRow(context.Background(), "WIDGET", func(context.Context) (OnHandRow, error) {
		return OnHandRow{SKU: "WIDGET", Total: 5}, nil
	})
	require.NoError(t, err)
	require.InDelta(t, 5.0, row.Total, 1e-9)
	require.NoError(t, cache.Bump(context.Background()))
}
