package job

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/postvault/postvault/internal/queue"
)

// PublishRunJob is the cron-driven entry point for scheduled publishing.
// It only enqueues; the worker does the actual run so the cron tick never
// blocks on the Graph API.
type PublishRunJob struct {
	asynqClient *asynq.Client
}

func NewPublishRunJob(asynqClient *asynq.Client) *PublishRunJob {
	return &PublishRunJob{asynqClient: asynqClient}
}

func (c *PublishRunJob) EnqueueRun() {
	if err := queue.EnqueueRun(c.asynqClient); err != nil {
		slog.Error("unable to enqueue publish run", "error", err.Error())
	}
}
