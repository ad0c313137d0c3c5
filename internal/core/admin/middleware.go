package admin

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minechat/minechat-be/internal/core/auth"
)

// ResolveIdentity swaps the request identity for the impersonated tenant
// when the calling admin has an active view session. Must run between
// AuthMiddleware and any role/tenant gate.
func ResolveIdentity(overlay *Overlay) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := auth.IdentityFromCtx(c)
		if identity != nil {
			c.Locals(auth.LocalIdentity, overlay.Resolve(identity))
		}
		return c.Next()
	}
}
