package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Response-length generation hints
const (
	ResponseLengthShort  = "short"
	ResponseLengthNormal = "normal"
	ResponseLengthLong   = "long"
)

// AIAssistantProfile is the per-tenant assistant persona. Mutated only
// through explicit save/reset from the setup screens.
type AIAssistantProfile struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	Name           string    `gorm:"type:text" json:"name"`
	IntroMessage   string    `gorm:"type:text" json:"intro_message"`
	Description    string    `gorm:"type:text" json:"description"`
	Guidelines     string    `gorm:"type:text" json:"guidelines"`
	ResponseLength string    `gorm:"type:text;default:'normal'" json:"response_length"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	Tenant Tenant `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (AIAssistantProfile) TableName() string {
	return "ai_assistant_profiles"
}

// BeforeCreate sets UUID before creating
func (p *AIAssistantProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DefaultProfile is the graceful fallback when a tenant has not finished
// assistant setup.
func DefaultProfile(tenantID uuid.UUID, businessName string) *AIAssistantProfile {
	return &AIAssistantProfile{
		TenantID:       tenantID,
		Name:           "Assistant",
		IntroMessage:   "Hi! How can I help you today?",
		Description:    "A helpful assistant for " + businessName,
		ResponseLength: ResponseLengthNormal,
	}
}
