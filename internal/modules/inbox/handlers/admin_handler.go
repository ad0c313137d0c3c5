package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/minechat/minechat-be/internal/core/admin"
	"github.com/minechat/minechat-be/internal/core/auth"
)

// AdminHandler controls the view-as-tenant overlay
type AdminHandler struct {
	overlay *admin.Overlay
}

func NewAdminHandler(overlay *admin.Overlay) *AdminHandler {
	return &AdminHandler{overlay: overlay}
}

// originalIdentity peels off the overlay so view-session management always
// acts on the real admin, even while impersonating.
func originalIdentity(c *fiber.Ctx) *auth.Identity {
	identity := auth.IdentityFromCtx(c)
	if identity != nil && identity.OriginalUser != nil {
		return identity.OriginalUser
	}
	return identity
}

type startViewRequest struct {
	TenantID string `json:"tenant_id"`
}

// StartView godoc
// @Summary Start viewing the dashboard as a tenant
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body startViewRequest true "Target tenant"
// @Success 200 {object} admin.Session
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/view [post]
func (h *AdminHandler) StartView(c *fiber.Ctx) error {
	var req startViewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tenant_id"})
	}

	session, err := h.overlay.StartViewing(originalIdentity(c), tenantID)
	if err != nil {
		if errors.Is(err, admin.ErrNotAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(session)
}

// StopView godoc
// @Summary Stop viewing as a tenant
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/view [delete]
func (h *AdminHandler) StopView(c *fiber.Ctx) error {
	identity := originalIdentity(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	h.overlay.StopViewing(identity.UserID)
	return c.JSON(fiber.Map{"status": "stopped"})
}

// ViewStatus godoc
// @Summary Current view-as-tenant session, if any
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/view [get]
func (h *AdminHandler) ViewStatus(c *fiber.Ctx) error {
	identity := originalIdentity(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	session, ok := h.overlay.Active(identity.UserID)
	if !ok {
		return c.JSON(fiber.Map{"active": false})
	}
	return c.JSON(fiber.Map{"active": true, "session": session})
}
