package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the thread with one external customer on one channel.
// Created lazily on first inbound message; archived, never hard-deleted.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_customer,priority:1" json:"tenant_id"`
	Provider      string    `gorm:"type:text;not null;uniqueIndex:idx_tenant_customer,priority:2" json:"provider"`
	CustomerID    string    `gorm:"type:text;not null;uniqueIndex:idx_tenant_customer,priority:3" json:"customer_id"`
	CustomerName  string    `gorm:"type:text" json:"customer_name"`
	UnreadCount   int       `gorm:"not null;default:0" json:"unread_count"`
	Archived      bool      `gorm:"not null;default:false" json:"archived"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	Tenant Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate sets UUID before creating
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
