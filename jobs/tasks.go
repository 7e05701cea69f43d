// Package jobs defines background tasks and the Asynq worker hosting them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeImageSweep deletes orphaned image artifacts queued by the
	// item lifecycle (failed compensation cleanups and replaced blobs).
	TaskTypeImageSweep = "images:sweep"

	// sweepBatchSize bounds how many orphans one sweep run processes.
	sweepBatchSize = 100
)

// ImageSweepPayload configures one sweep run.
type ImageSweepPayload struct {
	Limit int `json:"limit"`
}

// ImageSweeper is the item-side port of the sweep task.
type ImageSweeper interface {
	SweepOrphans(ctx context.Context, limit int) (int, error)
}

// NewImageSweepTask constructs an Asynq task for an orphan sweep.
func NewImageSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(ImageSweepPayload{Limit: sweepBatchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeImageSweep, data), nil
}

// NewImageSweepHandler builds the handler processing TaskTypeImageSweep.
func NewImageSweepHandler(sweeper ImageSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ImageSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Limit <= 0 {
			payload.Limit = sweepBatchSize
		}
		swept, err := sweeper.SweepOrphans(ctx, payload.Limit)
		if err != nil {
			return err
		}
		if logger != nil && swept > 0 {
			logger.Info("image sweep completed", slog.Int("swept", swept))
		}
		return nil
	}
}
