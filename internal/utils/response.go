// Package utils holds the JSON response helpers shared by the HTTP
// handlers. Every failure, whatever its status, carries the same
// single-field payload so clients parse one error shape.
package utils

import "github.com/gofiber/fiber/v2"

// Success sends data with status 200.
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

// Error sends the uniform error payload with the given status. Handlers
// use it directly for statuses without a named helper, e.g. 502 when
// charge initiation fails or 503 when the gateway cannot be reached.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func InternalError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}
