package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"deonai-be/internal/pkg/logger"
	"deonai-be/internal/service"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/llm"
	"deonai-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Use(ErrorHandlerMiddleware(logger.NewFromZap(zap.NewNop())))
	return app
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func decodeError(t *testing.T, body io.Reader) BaseResponse[any] {
	t.Helper()
	var res BaseResponse[any]
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	app := newTestApp()
	app.Get("/ok", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })
	app.Get("/fail", func(ctx *fiber.Ctx) error { return service.ErrNotFound })

	for _, path := range []string{"/ok", "/fail", "/missing"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)

		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"), path)
		assert.Equal(t, "strict-origin-when-cross-origin", resp.Header.Get("Referrer-Policy"), path)
		assert.Equal(t, "camera=(), microphone=(), geolocation=()", resp.Header.Get("Permissions-Policy"), path)
		assert.Equal(t, "same-origin", resp.Header.Get("Cross-Origin-Opener-Policy"), path)
		assert.Equal(t, "same-site", resp.Header.Get("Cross-Origin-Resource-Policy"), path)
	}
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unauthenticated", auth.ErrUnauthenticated, 401},
		{"expired", auth.ErrExpired, 401},
		{"service validation", fmt.Errorf("create: %w", &service.ValidationError{Field: "title", Message: "too long"}), 422},
		{"request validation", &RequestValidationError{Fields: map[string]string{"model_id": "required"}}, 422},
		{"not found", fmt.Errorf("append message: %w", service.ErrNotFound), 404},
		{"store", fmt.Errorf("list: %w: %w", service.ErrStore, fmt.Errorf("conn refused")), 500},
		{"bad body", fiber.NewError(fiber.StatusBadRequest, "Invalid request body"), 400},
		{"upstream key", llm.ErrInvalidCredentials, 400},
		{"upstream status", &llm.UpstreamError{Status: 503, Body: "down"}, 502},
		{"unknown", fmt.Errorf("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			body := decodeError(t, resp.Body)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestErrorHandlerHidesStoreDetails(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("list: %w: %w", service.ErrStore, fmt.Errorf("password=hunter2"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "Internal server error", decodeError(t, resp.Body).Message)
}

func TestJwtMiddleware(t *testing.T) {
	app := newTestApp()
	app.Get("/me", JwtMiddleware(auth.NewVerifier(testSecret)), func(ctx *fiber.Ctx) error {
		caller, err := Caller(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(fiber.Map{"sub": caller.Subject, "user_id": ctx.Locals("user_id")})
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "user-1", body["sub"])
		assert.Equal(t, "user-1", body["user_id"])
	})

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, 401, resp.StatusCode)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.NewLimiterWithClock(func() time.Time { return now })

	app := newTestApp()
	app.Use(RateLimitMiddleware(limiter, 2, time.Minute, "/api/health"))
	app.Get("/api/health", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })
	app.Get("/api/conversations", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })
	app.Post("/api/conversations", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })

	call := func(method, path string) int {
		resp, err := app.Test(httptest.NewRequest(method, path, nil), -1)
		require.NoError(t, err)
		if resp.StatusCode == fiber.StatusTooManyRequests {
			assert.Equal(t, "60", resp.Header.Get("Retry-After"))
		}
		return resp.StatusCode
	}

	assert.Equal(t, 200, call("GET", "/api/conversations"))
	assert.Equal(t, 200, call("GET", "/api/conversations"))
	assert.Equal(t, 429, call("GET", "/api/conversations"))

	// a different method on the same path has its own window
	assert.Equal(t, 200, call("POST", "/api/conversations"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, call("GET", "/api/health"))
	}

	now = now.Add(61 * time.Second)
	assert.Equal(t, 200, call("GET", "/api/conversations"))
}

func TestValidateRequestReportsJsonNames(t *testing.T) {
	type payload struct {
		ModelId string `json:"model_id" validate:"required"`
		Title   string `json:"title" validate:"max=3"`
	}

	err := ValidateRequest(payload{Title: "toolong"})
	var verr *RequestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["model_id"])
	assert.Equal(t, "max=3", verr.Fields["title"])

	assert.NoError(t, ValidateRequest(payload{ModelId: "m", Title: "ok"}))
}
