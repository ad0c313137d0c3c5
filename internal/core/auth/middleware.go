package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the middleware chain
const (
	LocalIdentity = "identity"
	LocalClaims   = "claims"
)

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(jwtService *JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(LocalClaims, claims)
		c.Locals(LocalIdentity, &Identity{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Role:     claims.Role,
			TenantID: claims.TenantID,
		})

		return c.Next()
	}
}

// RequireRole creates a middleware that checks the resolved identity's role.
// It must run after AuthMiddleware (and after the impersonation overlay, so
// an admin viewing as a tenant passes tenant-gated routes).
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFromCtx(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// IdentityFromCtx returns the resolved identity for the request, or nil
func IdentityFromCtx(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(LocalIdentity).(*Identity)
	return identity
}
