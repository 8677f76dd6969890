package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func GetClientID(c *fiber.Ctx) string {
	clientID, _ := c.Locals("client_id").(string)
	return clientID
}
