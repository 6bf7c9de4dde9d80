package serverutils

import "github.com/gofiber/fiber/v2"

var securityHeaders = map[string]string{
	fiber.HeaderXContentTypeOptions:       "nosniff",
	fiber.HeaderXFrameOptions:             "DENY",
	fiber.HeaderReferrerPolicy:            "strict-origin-when-cross-origin",
	fiber.HeaderPermissionsPolicy:         "camera=(), microphone=(), geolocation=()",
	"Cross-Origin-Opener-Policy":          "same-origin",
	fiber.HeaderCrossOriginResourcePolicy: "same-site",
}

// SecurityHeaders sets the fixed hardening headers before the handler runs,
// so they survive error responses and streamed bodies alike.
func SecurityHeaders() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		for name, value := range securityHeaders {
			ctx.Set(name, value)
		}
		return ctx.Next()
	}
}
