package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent records a processed delivery for idempotent ingestion.
// DedupKey is provider:page_id:external_message_id; the unique index makes
// replays visible as conflicts. Rows older than the retention window are
// purged by the maintenance scheduler.
type WebhookEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DedupKey   string         `gorm:"type:text;not null;uniqueIndex" json:"dedup_key"`
	RawPayload datatypes.JSON `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	ReceivedAt time.Time      `gorm:"autoCreateTime" json:"received_at"`
}

// TableName specifies the table name
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// BeforeCreate sets UUID before creating
func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
