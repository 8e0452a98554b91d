package auth_test

import (
	"net/http/httptest"
	"testing"

	"segment-sync/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(cfg auth.Config) *fiber.App {
	app := fiber.New()
	app.Use(auth.New(cfg))
	app.Get("/segments", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAuth(t *testing.T) {
	app := setupApp(auth.Config{ApiKey: "secret", Skip: []string{"/metrics"}})

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"Valid Key", "/segments", "secret", 200},
		{"Wrong Key", "/segments", "nope", 401},
		{"Missing Key", "/segments", "", 401},
		{"Skipped Path", "/metrics", "", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(auth.Header, tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	app := setupApp(auth.Config{})

	resp, err := app.Test(httptest.NewRequest("GET", "/segments", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
