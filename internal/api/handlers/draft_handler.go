package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postvault/postvault/internal/service"
	"github.com/postvault/postvault/internal/transfer"
)

type DraftHandler struct {
	s service.DraftService
}

func NewDraftHandler(service service.DraftService) *DraftHandler {
	return &DraftHandler{s: service}
}

func (h *DraftHandler) CreateDraft(c *fiber.Ctx) error {
	var dc transfer.DraftCreation
	if err := c.BodyParser(&dc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	draft, err := h.s.Create(c.Context(), &dc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(draft)
}

func (h *DraftHandler) UpdateDraft(c *fiber.Ctx) error {
	id := c.Params("id")

	var dc transfer.DraftCreation
	if err := c.BodyParser(&dc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	draft, err := h.s.Update(c.Context(), id, &dc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(draft)
}

func (h *DraftHandler) ListDrafts(c *fiber.Ctx) error {
	id := c.Query("id")

	if id != "" {
		draft, err := h.s.Get(c.Context(), id)
		if err != nil || draft == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Draft not found",
			})
		}
		return c.Status(fiber.StatusOK).JSON(draft)
	}

	drafts, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list drafts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(drafts)
}

func (h *DraftHandler) RemoveDraft(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.s.Remove(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
