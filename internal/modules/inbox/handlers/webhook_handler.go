package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minechat/minechat-be/internal/modules/inbox/services"
)

// WebhookHandler terminates the provider callback surface. Unauthenticated:
// legitimacy is established by the verify token and the payload signature,
// never by a dashboard session.
type WebhookHandler struct {
	service *services.WebhookService
}

func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Verify godoc
// @Summary Webhook subscription handshake
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "Subscription mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "challenge"
// @Failure 403 {object} map[string]interface{}
// @Router /webhook/facebook [get]
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	challenge, err := h.service.VerifyChallenge(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "verification failed"})
	}
	return c.SendString(challenge)
}

// Receive godoc
// @Summary Receive a webhook delivery
// @Tags Webhook
// @Accept json
// @Produce plain
// @Success 200 {string} string "EVENT_RECEIVED"
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /webhook/facebook [post]
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()

	if !h.service.ValidSignature(body, c.Get("X-Hub-Signature-256")) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid signature"})
	}

	// HandleDelivery only fails on a malformed body; per-event failures are
	// resolved inside the service and still acked.
	if err := h.service.HandleDelivery(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed payload"})
	}

	// Always ack accepted deliveries so the provider stops redelivering
	return c.SendString("EVENT_RECEIVED")
}
