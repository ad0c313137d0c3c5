package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/minechat/minechat-be/internal/core/auth"
	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/modules/inbox/services"
)

// ConnectionHandler exposes the channel connection lifecycle to the dashboard
type ConnectionHandler struct {
	service *services.ConnectionService
}

func NewConnectionHandler(service *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

// tenantFromCtx resolves the effective tenant id (post-overlay). The auth
// middleware guarantees an identity on these routes; a missing or unparsable
// tenant still answers 401 rather than panicking.
func tenantFromCtx(c *fiber.Ctx) (uuid.UUID, error) {
	identity := auth.IdentityFromCtx(c)
	if identity == nil || identity.TenantID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	tenantID, err := uuid.Parse(identity.TenantID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid tenant")
	}
	return tenantID, nil
}

// Start godoc
// @Summary Begin Facebook page authorization
// @Tags Connection
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook/start [post]
func (h *ConnectionHandler) Start(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	url, err := h.service.StartAuthorization(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"authorization_url": url})
}

// StartQR godoc
// @Summary Authorization URL as a scannable QR code
// @Tags Connection
// @Produce png
// @Success 200 {file} binary
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook/qr [get]
func (h *ConnectionHandler) StartQR(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	url, err := h.service.StartAuthorization(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to render QR code"})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// Callback godoc
// @Summary Complete the OAuth redirect and list selectable pages
// @Tags Connection
// @Produce json
// @Param code query string false "Authorization code"
// @Param error query string false "Provider error when consent was declined"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook/callback [get]
func (h *ConnectionHandler) Callback(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	pages, err := h.service.CompleteAuthorization(c.Context(), tenantID, c.Query("code"), c.Query("error"))
	if err != nil {
		status := fiber.StatusBadRequest
		if messenger.IsCode(err, messenger.CodeProviderUnavailable) {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
			"code":  messenger.CodeOf(err),
		})
	}

	return c.JSON(fiber.Map{"pages": pages})
}

type selectPageRequest struct {
	PageID string `json:"page_id"`
}

// SelectPage godoc
// @Summary Bind the connection to one of the authorized pages
// @Tags Connection
// @Accept json
// @Produce json
// @Param payload body selectPageRequest true "Page selection"
// @Success 200 {object} models.ChannelConnection
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook/select-page [post]
func (h *ConnectionHandler) SelectPage(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	var req selectPageRequest
	if err := c.BodyParser(&req); err != nil || req.PageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page_id is required"})
	}

	conn, err := h.service.SelectPage(c.Context(), tenantID, req.PageID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  messenger.CodeOf(err),
		})
	}

	return c.JSON(conn)
}

// Disconnect godoc
// @Summary Disconnect the Facebook channel
// @Tags Connection
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook [delete]
func (h *ConnectionHandler) Disconnect(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	if err := h.service.Disconnect(tenantID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "disconnected"})
}

// Status godoc
// @Summary Current channel connection state
// @Tags Connection
// @Produce json
// @Success 200 {object} models.ChannelConnection
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /connection/facebook [get]
func (h *ConnectionHandler) Status(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	conn, err := h.service.Status(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(conn)
}
