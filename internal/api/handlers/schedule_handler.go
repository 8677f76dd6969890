package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postvault/postvault/internal/service"
	"github.com/postvault/postvault/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) CreateSlot(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	slot, err := h.s.Schedule(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(slot)
}

func (h *ScheduleHandler) RescheduleSlot(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		ScheduledDate string `json:"scheduledDate"`
		ScheduledTime string `json:"scheduledTime"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	slot, err := h.s.Reschedule(c.Context(), id, body.ScheduledDate, body.ScheduledTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(slot)
}

func (h *ScheduleHandler) RemoveSlot(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.s.Unschedule(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *ScheduleHandler) RetrySlot(c *fiber.Ctx) error {
	id := c.Params("id")

	slot, err := h.s.Retry(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(slot)
}

func (h *ScheduleHandler) OverrideSlot(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	slot, err := h.s.Override(c.Context(), id, body.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(slot)
}

func (h *ScheduleHandler) ListSlots(c *fiber.Ctx) error {
	slots, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list schedule slots",
		})
	}

	return c.Status(fiber.StatusOK).JSON(slots)
}
