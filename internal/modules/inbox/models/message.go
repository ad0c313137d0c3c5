package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message directions
const (
	DirectionCustomerInbound = "customer_inbound"
	DirectionAIOutbound      = "ai_outbound"
	DirectionHumanOutbound   = "human_outbound"
)

// Delivery status for outbound messages
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryPending = "pending"
)

// Message belongs to exactly one conversation and is immutable once
// persisted. ExternalID is the provider-assigned message id used for dedup.
type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Direction      string         `gorm:"type:text;not null" json:"direction"`
	Content        string         `gorm:"type:text" json:"content"`
	Attachments    datatypes.JSON `gorm:"type:jsonb" json:"attachments,omitempty"`
	ExternalID     string         `gorm:"type:text;index" json:"external_id,omitempty"`
	DeliveryStatus string         `gorm:"type:text;default:'sent'" json:"delivery_status"`
	FailureReason  string         `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`

	// Relationship
	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate sets UUID before creating
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
