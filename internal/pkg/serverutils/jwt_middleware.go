package serverutils

import (
	"deonai-be/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

const (
	identityKey = "identity"
	userIdKey   = "user_id"
)

// JwtMiddleware verifies the bearer token and stores the caller identity in
// the request locals.
func JwtMiddleware(verifier *auth.Verifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		identity, err := verifier.Verify(ctx.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		ctx.Locals(identityKey, identity)
		ctx.Locals(userIdKey, identity.Subject)
		return ctx.Next()
	}
}

// Caller returns the identity stored by JwtMiddleware.
func Caller(ctx *fiber.Ctx) (auth.Identity, error) {
	identity, ok := ctx.Locals(identityKey).(auth.Identity)
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return identity, nil
}
