package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

type ConversationRepo interface {
	UpsertInbound(tenantID uuid.UUID, provider, customerID, customerName string, msg *models.Message) (*models.Conversation, error)
	RecordOutbound(conversationID uuid.UUID, msg *models.Message) error
	GetByID(id uuid.UUID) (*models.Conversation, error)
	List(tenantID uuid.UUID) ([]models.Conversation, error)
	Messages(conversationID uuid.UUID, limit int) ([]models.Message, error)
	ResetUnread(tenantID uuid.UUID, conversationID *uuid.UUID) error
	UnreadTotal(tenantID uuid.UUID) (int64, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

// UpsertInbound creates the conversation on first contact, appends the
// inbound message, bumps unread and last_message_at — all in one
// transaction so a poll never observes a half-applied event.
func (r *conversationRepo) UpsertInbound(tenantID uuid.UUID, provider, customerID, customerName string, msg *models.Message) (*models.Conversation, error) {
	var conv models.Conversation

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND provider = ? AND customer_id = ?", tenantID, provider, customerID).
			First(&conv).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			conv = models.Conversation{
				TenantID:     tenantID,
				Provider:     provider,
				CustomerID:   customerID,
				CustomerName: customerName,
			}
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}
		}

		msg.ConversationID = conv.ID
		msg.Direction = models.DirectionCustomerInbound
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		conv.UnreadCount++
		conv.LastMessageAt = msg.CreatedAt
		if conv.LastMessageAt.IsZero() {
			conv.LastMessageAt = time.Now()
		}
		if customerName != "" {
			conv.CustomerName = customerName
		}
		return tx.Save(&conv).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// RecordOutbound appends an ai- or human-outbound message. Unread reflects
// customer-originated messages only, so the counter does not move.
func (r *conversationRepo) RecordOutbound(conversationID uuid.UUID, msg *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		msg.ConversationID = conversationID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

func (r *conversationRepo) GetByID(id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) List(tenantID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Where("tenant_id = ? AND archived = false", tenantID).
		Order("last_message_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepo) Messages(conversationID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var messages []models.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ResetUnread is the single canonical unread reset. conversationID nil
// widens the WHERE clause to the whole tenant (mark-all-read); both paths
// share this one UPDATE.
func (r *conversationRepo) ResetUnread(tenantID uuid.UUID, conversationID *uuid.UUID) error {
	query := r.db.Model(&models.Conversation{}).Where("tenant_id = ?", tenantID)
	if conversationID != nil {
		query = query.Where("id = ?", *conversationID)
	}
	return query.Update("unread_count", 0).Error
}

// UnreadTotal is always computed at read time, never cached
func (r *conversationRepo) UnreadTotal(tenantID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND archived = false", tenantID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return total, err
}
