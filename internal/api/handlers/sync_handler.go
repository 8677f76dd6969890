package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/postvault/postvault/internal/queue"
	"github.com/postvault/postvault/internal/sync"
)

type SyncHandler struct {
	o           *sync.Orchestrator
	AsynqClient *asynq.Client
}

func NewSyncHandler(orchestrator *sync.Orchestrator, asynqClient *asynq.Client) *SyncHandler {
	return &SyncHandler{o: orchestrator, AsynqClient: asynqClient}
}

// SyncNow runs a merge-and-upload pass immediately. A report with
// skipped=true means another sync just ran and this one was coalesced.
func (h *SyncHandler) SyncNow(c *fiber.Ctx) error {
	report, err := h.o.SyncToRemote(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

// Restore discards local state and adopts the remote snapshot as-is.
func (h *SyncHandler) Restore(c *fiber.Ctx) error {
	snap, err := h.o.FetchFromRemote(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if snap == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No remote snapshot to restore from",
		})
	}

	return c.Status(fiber.StatusOK).JSON(snap)
}

func (h *SyncHandler) Status(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.o.Status())
}

// TriggerRun enqueues a publish run instead of running it inline so the
// HTTP request doesn't hold the connection through a full pipeline.
func (h *SyncHandler) TriggerRun(c *fiber.Ctx) error {
	if err := queue.EnqueueRun(h.AsynqClient); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error enqueueing publish run",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Publish run enqueued",
	})
}
