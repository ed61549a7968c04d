package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/jobs"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OnHandWarmupJob pre-populates the on-hand cache for recently moved SKUs so
// the first read after an invalidation does not pay the aggregation cost.
type OnHandWarmupJob struct {
	Stock   *stock.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOnHandWarmupJob wires dependencies for the warmup handler.
func NewOnHandWarmupJob(stockSvc *stock.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *OnHandWarmupJob {
	return &OnHandWarmupJob{
		Stock:   stockSvc,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes on-hand warmup tasks.
func (j *OnHandWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("onhand warmup: handler not configured")
	}
	var payload OnHandWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxSKUs <= 0 {
		payload.MaxSKUs = 200
	}

	tracker := j.metrics().Track(TaskStockOnHandWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting onhand warmup", slog.Int("max_skus", payload.MaxSKUs))

	skus, err := j.fetchSKUs(ctx, payload.MaxSKUs)
	if err != nil {
		resultErr = err
		logger.Error("load warmup skus", slog.Any("error", err))
		return resultErr
	}
	if len(skus) == 0 {
		logger.Info("no skus discovered for warmup")
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sku := range skus {
		g.Go(func() error {
			skuCtx, cancel := context.WithTimeout(gctx, 10*time.Second)
			defer cancel()
			_, err := j.Stock.OnHand(skuCtx, sku)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("warm sku", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed onhand warmup", slog.Int("skus", len(skus)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OnHandWarmupJob) fetchSKUs(ctx context.Context, limit int) ([]string, error) {
	if j.Pool == nil {
		return nil, errors.New("onhand warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT sku
		FROM stock_movements
		WHERE status = 'POSTED'
		GROUP BY sku
		ORDER BY MAX(moved_at) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skus := make([]string, 0, limit)
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, err
		}
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return skus, nil
}

func (j *OnHandWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockOnHandWarmup))
	}
	return slog.Default().With(slog.String("job", TaskStockOnHandWarmup))
}

func (j *OnHandWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OnHandWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
