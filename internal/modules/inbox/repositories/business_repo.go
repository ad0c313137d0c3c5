package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

// BusinessRepo is the narrow read-only view of the business-info
// collaborator the reply pipeline consumes.
type BusinessRepo interface {
	GetProfile(tenantID uuid.UUID) (*models.BusinessProfile, error)
	ListProducts(tenantID uuid.UUID) ([]models.Product, error)
}

type businessRepo struct {
	db *gorm.DB
}

func NewBusinessRepo(db *gorm.DB) BusinessRepo {
	return &businessRepo{db: db}
}

func (r *businessRepo) GetProfile(tenantID uuid.UUID) (*models.BusinessProfile, error) {
	var profile models.BusinessProfile
	if err := r.db.First(&profile, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *businessRepo) ListProducts(tenantID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("tenant_id = ?", tenantID).Order("name ASC").Find(&products).Error
	return products, err
}
