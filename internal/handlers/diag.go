package handlers

import "github.com/gofiber/fiber/v2"

// GetClientInfo echoes the address and user agent a session created by this
// request would record. Useful when checking proxy header configuration.
func GetClientInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ip":        c.IP(),
		"ips":       c.IPs(),
		"userAgent": c.Get(fiber.HeaderUserAgent),
	})
}
