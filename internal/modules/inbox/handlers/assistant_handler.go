package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
)

// AssistantHandler manages the per-tenant assistant persona
type AssistantHandler struct {
	profiles repositories.ProfileRepo
	tenants  repositories.TenantRepo
}

func NewAssistantHandler(profiles repositories.ProfileRepo, tenants repositories.TenantRepo) *AssistantHandler {
	return &AssistantHandler{profiles: profiles, tenants: tenants}
}

// Get godoc
// @Summary Current assistant profile (default persona when unset)
// @Tags Assistant
// @Produce json
// @Success 200 {object} models.AIAssistantProfile
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /assistant/profile [get]
func (h *AssistantHandler) Get(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	profile, err := h.profiles.GetByTenant(tenantID)
	if err != nil {
		businessName := ""
		if tenant, terr := h.tenants.GetByID(tenantID); terr == nil {
			businessName = tenant.BusinessName
		}
		profile = models.DefaultProfile(tenantID, businessName)
	}

	return c.JSON(profile)
}

type saveProfileRequest struct {
	Name           string `json:"name"`
	IntroMessage   string `json:"intro_message"`
	Description    string `json:"description"`
	Guidelines     string `json:"guidelines"`
	ResponseLength string `json:"response_length"`
}

// Save godoc
// @Summary Save the assistant profile
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body saveProfileRequest true "Profile fields"
// @Success 200 {object} models.AIAssistantProfile
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /assistant/profile [put]
func (h *AssistantHandler) Save(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	var req saveProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	switch req.ResponseLength {
	case "", models.ResponseLengthShort, models.ResponseLengthNormal, models.ResponseLengthLong:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "response_length must be short, normal or long"})
	}
	if req.ResponseLength == "" {
		req.ResponseLength = models.ResponseLengthNormal
	}

	profile := &models.AIAssistantProfile{
		TenantID:       tenantID,
		Name:           req.Name,
		IntroMessage:   req.IntroMessage,
		Description:    req.Description,
		Guidelines:     req.Guidelines,
		ResponseLength: req.ResponseLength,
	}
	if err := h.profiles.Save(profile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(profile)
}

// Reset godoc
// @Summary Drop the saved profile, reverting to the default persona
// @Tags Assistant
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /assistant/profile [delete]
func (h *AssistantHandler) Reset(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	if err := h.profiles.Reset(tenantID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "reset"})
}
