package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

type ProfileRepo interface {
	GetByTenant(tenantID uuid.UUID) (*models.AIAssistantProfile, error)
	Save(profile *models.AIAssistantProfile) error
	Reset(tenantID uuid.UUID) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepo {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByTenant(tenantID uuid.UUID) (*models.AIAssistantProfile, error) {
	var profile models.AIAssistantProfile
	if err := r.db.First(&profile, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save upserts on tenant_id; the setup screens are the only writer
func (r *profileRepo) Save(profile *models.AIAssistantProfile) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "intro_message", "description", "guidelines", "response_length", "updated_at",
		}),
	}).Create(profile).Error
}

// Reset drops the saved profile; reads fall back to the default persona
func (r *profileRepo) Reset(tenantID uuid.UUID) error {
	err := r.db.Where("tenant_id = ?", tenantID).Delete(&models.AIAssistantProfile{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
