package queue

import (
	"github.com/postvault/postvault/internal/service"
)

// Queue handles the async publish-run tasks. One worker with concurrency 1:
// runs must not overlap, overlapping runs would double-publish.
type Queue struct {
	runner service.RunnerService
}

func NewQueue(runner service.RunnerService) *Queue {
	return &Queue{
		runner: runner,
	}
}

const TaskTypePublishRun = "publish:run"

type PublishRunPayload struct {
	RequestedAt int64 `json:"requested_at"`
}
