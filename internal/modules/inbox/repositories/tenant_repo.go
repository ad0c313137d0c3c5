package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

type TenantRepo interface {
	GetByID(id uuid.UUID) (*models.Tenant, error)
	ProvisionTenant(businessName, ownerEmail string) (uuid.UUID, error)
	LookupTenant(tenantID uuid.UUID) (string, error)
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) GetByID(id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ProvisionTenant creates the tenant record for a new signup
func (r *tenantRepo) ProvisionTenant(businessName, ownerEmail string) (uuid.UUID, error) {
	if businessName == "" {
		businessName = ownerEmail
	}
	tenant := &models.Tenant{
		BusinessName: businessName,
		OwnerEmail:   ownerEmail,
		Status:       "active",
	}
	if err := r.db.Create(tenant).Error; err != nil {
		return uuid.Nil, err
	}
	return tenant.ID, nil
}

// LookupTenant returns the display name for the impersonation overlay
func (r *tenantRepo) LookupTenant(tenantID uuid.UUID) (string, error) {
	tenant, err := r.GetByID(tenantID)
	if err != nil {
		return "", err
	}
	return tenant.BusinessName, nil
}
