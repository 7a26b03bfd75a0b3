package middleware

import "github.com/gofiber/fiber/v2"

const robotsBody = "User-agent: *\nDisallow: /\n"

// RobotsMiddleware answers /robots.txt and keeps crawlers away from the API.
func RobotsMiddleware(c *fiber.Ctx) error {
	if c.Path() == "/robots.txt" {
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.Type("txt").SendString(robotsBody)
	}

	c.Set("X-Robots-Tag", "noindex, nofollow")
	return c.Next()
}
