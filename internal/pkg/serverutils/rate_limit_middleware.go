package serverutils

import (
	"strconv"
	"time"

	"deonai-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimitMiddleware admits at most limit requests per window for each
// client address, method and path. Paths in exempt skip the check.
func RateLimitMiddleware(limiter *ratelimit.Limiter, limit int, window time.Duration, exempt ...string) fiber.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}

	return func(ctx *fiber.Ctx) error {
		if _, ok := skip[ctx.Path()]; ok {
			return ctx.Next()
		}

		key := ctx.IP() + ":" + ctx.Method() + ":" + ctx.Path()
		res := limiter.Allow(key, limit, window)
		if !res.Allowed {
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(res.RetryAfter))
			return ctx.Status(fiber.StatusTooManyRequests).
				JSON(ErrorResponse(fiber.StatusTooManyRequests, "Too many requests, please slow down"))
		}
		return ctx.Next()
	}
}
