package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/service"
	"github.com/postvault/postvault/pkg/utils"
)

type AuthHandler struct {
	s   service.ApiKeyService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.ApiKeyService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

// Login trades a valid API key for a session cookie so browser clients
// don't carry the key in every query string.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		ApiKey string `json:"api_key"`
	}
	if err := c.BodyParser(&body); err != nil || body.ApiKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "API key is required",
		})
	}

	if err := h.s.Validate(c.Context(), body.ApiKey); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, "session", 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.SendStatus(fiber.StatusOK)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusOK)
}
