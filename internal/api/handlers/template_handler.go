package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postvault/postvault/internal/service"
	"github.com/postvault/postvault/internal/transfer"
)

type TemplateHandler struct {
	s service.TemplateService
}

func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{s: service}
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var tc transfer.TemplateCreation
	if err := c.BodyParser(&tc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	tmpl, err := h.s.Create(c.Context(), &tc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(tmpl)
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	id := c.Params("id")

	var tc transfer.TemplateCreation
	if err := c.BodyParser(&tc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	tmpl, err := h.s.Update(c.Context(), id, &tc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(tmpl)
}

func (h *TemplateHandler) RemoveTemplate(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.s.Remove(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list templates",
		})
	}

	return c.Status(fiber.StatusOK).JSON(templates)
}

func (h *TemplateHandler) GetDefaultTemplate(c *fiber.Ctx) error {
	tmpl, err := h.s.GetDefault(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get default template",
		})
	}

	return c.Status(fiber.StatusOK).JSON(tmpl)
}

func (h *TemplateHandler) UpdateDefaultTemplate(c *fiber.Ctx) error {
	var body struct {
		Rules string `json:"rules"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	tmpl, err := h.s.UpdateDefault(c.Context(), body.Rules)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(tmpl)
}
