package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/asistros/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Use(RequestID(), ErrorHandler())
	app.Get("/validation", func(c *fiber.Ctx) error {
		return apperrors.Validation("usuario requerido")
	})
	app.Get("/auth", func(c *fiber.Ctx) error {
		return apperrors.ErrInvalidCredential
	})
	app.Get("/infra", func(c *fiber.Ctx) error {
		return errors.New("dial tcp 10.0.0.5:3306: connection refused")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrMethodNotAllowed
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{path: "/validation", status: http.StatusBadRequest, message: "usuario requerido"},
		{path: "/auth", status: http.StatusUnauthorized, message: apperrors.ErrInvalidCredential.Message},
		{path: "/infra", status: http.StatusInternalServerError, message: apperrors.ErrInternalServer.Message},
		{path: "/fiber", status: http.StatusMethodNotAllowed, message: fiber.ErrMethodNotAllowed.Message},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		if err != nil {
			t.Fatalf("%s: app.Test() error = %v", tt.path, err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
		if body := decodeBody(t, resp); body.Message != tt.message {
			t.Errorf("%s: message = %q, want %q", tt.path, body.Message, tt.message)
		}
		if resp.Header.Get(fiber.HeaderXRequestID) == "" {
			t.Errorf("%s: missing request id", tt.path)
		}
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Use(Recovery())
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(ClientIP(c))
	})

	tests := []struct {
		name string
		xff  string
		want string
	}{
		{name: "first hop", xff: "203.0.113.7, 10.0.0.2", want: "203.0.113.7"},
		{name: "single", xff: "198.51.100.1", want: "198.51.100.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.xff != "" {
			req.Header.Set(fiber.HeaderXForwardedFor, tt.xff)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test() error = %v", tt.name, err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != tt.want {
			t.Errorf("%s: ClientIP() = %q, want %q", tt.name, body, tt.want)
		}
	}
}
