package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel connection lifecycle states
const (
	StatusDisconnected         = "disconnected"
	StatusAuthorizationPending = "authorization_pending"
	StatusPageSelectionPending = "page_selection_pending"
	StatusConnected            = "connected"
	StatusTokenInvalid         = "token_invalid"
)

// ProviderFacebook is the only wired messaging provider
const ProviderFacebook = "facebook"

// ChannelConnection holds a tenant's authorization against one messaging
// provider. At most one row per (tenant, provider); the status column drives
// the connection state machine.
type ChannelConnection struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_provider,priority:1" json:"tenant_id"`
	Provider      string     `gorm:"type:text;not null;uniqueIndex:idx_tenant_provider,priority:2" json:"provider"`
	PageID        string     `gorm:"type:text" json:"page_id"`
	PageName      string     `gorm:"type:text" json:"page_name"`
	CredentialRef string     `gorm:"type:text" json:"-"`
	Status        string     `gorm:"type:text;not null;default:'disconnected'" json:"status"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	Tenant Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (ChannelConnection) TableName() string {
	return "channel_connections"
}

// BeforeCreate sets UUID before creating
func (c *ChannelConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
