package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockOnHandWarmup pre-populates the on-hand cache for active SKUs.
	TaskStockOnHandWarmup = "stock:onhand_warmup"
	// TaskDocumentStaleScan flags documents stuck mid-pipeline.
	TaskDocumentStaleScan = "documents:stale_scan"
)

// OnHandWarmupPayload bounds the warmup run.
type OnHandWarmupPayload struct {
	MaxSKUs int `json:"max_skus"`
}

// NewOnHandWarmupTask constructs an Asynq task for the on-hand warmup.
func NewOnHandWarmupTask(maxSKUs int) (*asynq.Task, error) {
	data, err := json.Marshal(OnHandWarmupPayload{MaxSKUs: maxSKUs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockOnHandWarmup, data), nil
}

// StaleScanPayload configures the stale-document scan.
type StaleScanPayload struct {
	// StaleAfterHours is how long a document may sit below POSTED before it
	// counts as stuck.
	StaleAfterHours int `json:"stale_after_hours"`
}

// NewStaleScanTask constructs an Asynq task for the stale-document scan.
func NewStaleScanTask(staleAfterHours int) (*asynq.Task, error) {
	data, err := json.Marshal(StaleScanPayload{StaleAfterHours: staleAfterHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentStaleScan, data), nil
}
