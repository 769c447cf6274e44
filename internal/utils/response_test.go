package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/bad", func(c *fiber.Ctx) error { return BadRequest(c, "bad input") })
	app.Get("/unauth", func(c *fiber.Ctx) error { return Unauthorized(c, "no token") })
	app.Get("/forbidden", func(c *fiber.Ctx) error { return Forbidden(c, "not allowed") })
	app.Get("/missing", func(c *fiber.Ctx) error { return NotFound(c, "no such thing") })
	app.Get("/boom", func(c *fiber.Ctx) error { return InternalError(c, "it broke") })
	app.Get("/upstream", func(c *fiber.Ctx) error { return Error(c, fiber.StatusBadGateway, "upstream down") })

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/bad", http.StatusBadRequest, "bad input"},
		{"/unauth", http.StatusUnauthorized, "no token"},
		{"/forbidden", http.StatusForbidden, "not allowed"},
		{"/missing", http.StatusNotFound, "no such thing"},
		{"/boom", http.StatusInternalServerError, "it broke"},
		{"/upstream", http.StatusBadGateway, "upstream down"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, map[string]string{"error": tc.message}, body, tc.path)
	}
}

func TestSuccess(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error { return Success(c, fiber.Map{"message": "done"}) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
