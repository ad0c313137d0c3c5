package repositories

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

type EventRepo interface {
	// Record stores a dedup key; returns false when the key was already
	// recorded inside the retention window.
	Record(dedupKey string, rawPayload []byte) (bool, error)
	// Release drops a recorded key so the provider's redelivery is accepted
	// again. Used when processing fails after the key was claimed.
	Release(dedupKey string) error
	PurgeEventsBefore(cutoff time.Time) (int64, error)
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepo {
	return &eventRepo{db: db}
}

func (r *eventRepo) Record(dedupKey string, rawPayload []byte) (bool, error) {
	event := &models.WebhookEvent{
		DedupKey:   dedupKey,
		RawPayload: datatypes.JSON(rawPayload),
	}
	err := r.db.Create(event).Error
	if err != nil {
		// The unique index is the dedup authority; a conflict means a
		// provider redelivery.
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *eventRepo) Release(dedupKey string) error {
	return r.db.Where("dedup_key = ?", dedupKey).Delete(&models.WebhookEvent{}).Error
}

func (r *eventRepo) PurgeEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("received_at < ?", cutoff).Delete(&models.WebhookEvent{})
	return result.RowsAffected, result.Error
}
