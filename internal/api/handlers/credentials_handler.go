package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/service"
)

type CredentialsHandler struct {
	s   service.CredentialsService
	cfg config.Config
}

func NewCredentialsHandler(cfg config.Config, service service.CredentialsService) *CredentialsHandler {
	return &CredentialsHandler{s: service, cfg: cfg}
}

func (h *CredentialsHandler) Connect(c *fiber.Ctx) error {
	return c.Redirect(h.s.AuthURL("secureRandomState"))
}

func (h *CredentialsHandler) ConnectCallback(c *fiber.Ctx) error {
	code := c.Query("code")

	if err := h.s.Callback(c.Context(), code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *CredentialsHandler) GetCredentials(c *fiber.Ctx) error {
	creds, err := h.s.Get(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get credentials",
		})
	}
	if creds == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"connected": false,
		})
	}

	// The encrypted token stays server-side.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected":      creds.Connected,
		"accountId":      creds.AccountID,
		"tokenExpiresAt": creds.TokenExpiresAt,
		"refreshedAt":    creds.RefreshedAt,
	})
}

func (h *CredentialsHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.s.Disconnect(c.Context()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
