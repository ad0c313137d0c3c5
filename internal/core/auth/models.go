package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dashboard roles
const (
	RoleTenant = "tenant"
	RoleAdmin  = "admin"
)

// User is a dashboard login. Tenant users own exactly one Tenant; admin
// users have no tenant of their own and act through the impersonation
// overlay.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string     `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"type:text" json:"-"`
	GoogleID     string     `gorm:"type:text;index" json:"-"`
	Name         string     `gorm:"type:text" json:"name"`
	Role         string     `gorm:"type:text;not null;default:'tenant'" json:"role"`
	TenantID     *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID before creating
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TokenClaims is what gets signed into the access token
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// Identity is the resolved caller identity for a request. When an admin is
// viewing as a tenant, the tenant's attributes are primary and OriginalUser
// carries the admin for UI banners.
type Identity struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	TenantID     string    `json:"tenant_id,omitempty"`
	OriginalUser *Identity `json:"original_user,omitempty"`
}

// IsImpersonated reports whether this identity is an admin overlay
func (i *Identity) IsImpersonated() bool {
	return i.OriginalUser != nil
}

// RegisterRequest is the email signup payload
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
}

// LoginRequest is the email login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries a Google-issued ID token
type GoogleLoginRequest struct {
	IDToken      string `json:"id_token"`
	BusinessName string `json:"business_name"`
}

// AuthResponse is returned by all login paths
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
