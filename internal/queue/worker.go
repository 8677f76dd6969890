package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// HandlePublishRunTask always returns nil. The runner folds every failure
// into its summary; surfacing an error here would make asynq retry the
// whole run and risk duplicate posts.
func (j *Queue) HandlePublishRunTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Error("invalid publish run payload", "error", err.Error())
		return nil
	}

	summary := j.runner.Run(ctx, time.Now())

	if summary.Error != "" {
		slog.Error("publish run aborted", "error", summary.Error)
		return nil
	}

	slog.Info("publish run complete",
		"due", summary.TotalDue,
		"published", len(summary.Successes()),
		"failed", len(summary.Failures()),
		"save_failed", summary.SaveFailed,
	)
	return nil
}
