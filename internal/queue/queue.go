package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

func EnqueueRun(asynqClient *asynq.Client) error {
	taskPayload, err := json.Marshal(PublishRunPayload{RequestedAt: time.Now().Unix()})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishRun, taskPayload)

	// MaxRetry 0: a failed run is reported, never re-executed. Some posts
	// in it may already be live.
	_, err = asynqClient.Enqueue(task, asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	log.Printf("Publish run enqueued")
	return nil
}
