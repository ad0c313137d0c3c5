package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
)

// ConversationHandler is the inbox read surface the dashboard polls
type ConversationHandler struct {
	conversations repositories.ConversationRepo
}

func NewConversationHandler(conversations repositories.ConversationRepo) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List godoc
// @Summary List conversations, newest activity first
// @Tags Inbox
// @Produce json
// @Success 200 {array} models.Conversation
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /conversations [get]
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	conversations, err := h.conversations.List(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(conversations)
}

// Messages godoc
// @Summary Message history for one conversation
// @Tags Inbox
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Max messages (default 100)"
// @Success 200 {array} models.Message
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	conv, err := h.conversations.GetByID(conversationID)
	if err != nil || conv.TenantID != tenantID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	messages, err := h.conversations.Messages(conversationID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(messages)
}

// MarkRead godoc
// @Summary Reset the unread counter for one conversation
// @Tags Inbox
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	conv, err := h.conversations.GetByID(conversationID)
	if err != nil || conv.TenantID != tenantID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
	}

	if err := h.conversations.ResetUnread(tenantID, &conversationID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "read"})
}

// MarkAllRead godoc
// @Summary Reset unread counters across the whole inbox
// @Tags Inbox
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /conversations/read-all [post]
func (h *ConversationHandler) MarkAllRead(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	if err := h.conversations.ResetUnread(tenantID, nil); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "read"})
}

// UnreadCount godoc
// @Summary Total unread messages across the inbox
// @Tags Inbox
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /conversations/unread-count [get]
func (h *ConversationHandler) UnreadCount(c *fiber.Ctx) error {
	tenantID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	total, err := h.conversations.UnreadTotal(tenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"unread": total})
}
