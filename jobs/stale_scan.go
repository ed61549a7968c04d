package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/jobs"
)

// StaleScanJob reports documents that have sat below POSTED for too long.
// The pipeline never advances documents on its own, so a stuck document only
// becomes visible when someone looks; this scan is the someone.
type StaleScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewStaleScanJob wires dependencies for the stale-document scan.
func NewStaleScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *StaleScanJob {
	return &StaleScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type staleDocument struct {
	Number   string
	Status   string
	UpdateAt time.Time
}

// Handle processes stale-document scan tasks.
func (j *StaleScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stale scan: handler not configured")
	}
	var payload StaleScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.StaleAfterHours <= 0 {
		payload.StaleAfterHours = 48
	}

	tracker := j.metrics().Track(TaskDocumentStaleScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	cutoff := j.now().Add(-time.Duration(payload.StaleAfterHours) * time.Hour)
	logger.Info("starting stale scan", slog.Time("cutoff", cutoff))

	stuck, err := j.fetchStale(ctx, cutoff)
	if err != nil {
		resultErr = err
		logger.Error("load stale documents", slog.Any("error", err))
		return resultErr
	}
	for _, doc := range stuck {
		logger.Warn("document stuck",
			slog.String("number", doc.Number),
			slog.String("status", doc.Status),
			slog.Time("updated_at", doc.UpdateAt))
	}
	j.metrics().CountStale(len(stuck))

	logger.Info("completed stale scan", slog.Int("stuck", len(stuck)))
	return resultErr
}

func (j *StaleScanJob) fetchStale(ctx context.Context, cutoff time.Time) ([]staleDocument, error) {
	if j.Pool == nil {
		return nil, errors.New("stale scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT number, status, updated_at
		FROM documents
		WHERE status NOT IN ('POSTED', 'NEEDS_REVIEW')
		  AND updated_at < $1
		ORDER BY updated_at
		LIMIT 500`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stuck []staleDocument
	for rows.Next() {
		var doc staleDocument
		if err := rows.Scan(&doc.Number, &doc.Status, &doc.UpdateAt); err != nil {
			return nil, err
		}
		stuck = append(stuck, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stuck, nil
}

func (j *StaleScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDocumentStaleScan))
	}
	return slog.Default().With(slog.String("job", TaskDocumentStaleScan))
}

func (j *StaleScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StaleScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
