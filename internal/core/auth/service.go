package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// TenantProvisioner creates the tenant record owned by a new signup. The
// inbox module provides the implementation; auth only needs this one call.
type TenantProvisioner interface {
	ProvisionTenant(businessName, ownerEmail string) (uuid.UUID, error)
}

// Service handles signup and login for the dashboard
type Service struct {
	users   UserRepo
	jwt     *JWTService
	google  *GoogleOAuthService
	tenants TenantProvisioner
}

func NewService(users UserRepo, jwt *JWTService, google *GoogleOAuthService, tenants TenantProvisioner) *Service {
	return &Service{
		users:   users,
		jwt:     jwt,
		google:  google,
		tenants: tenants,
	}
}

// Register creates a user plus its tenant and returns a session token
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	if _, err := s.users.GetByEmail(req.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	tenantID, err := s.tenants.ProvisionTenant(req.BusinessName, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to provision tenant: %w", err)
	}

	user := &User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         RoleTenant,
		TenantID:     &tenantID,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(user)
}

// Login authenticates an email/password user
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// LoginWithGoogle verifies a Google ID token, creating the user (and its
// tenant) on first sign-in
func (s *Service) LoginWithGoogle(ctx context.Context, req *GoogleLoginRequest) (*AuthResponse, error) {
	info, err := s.google.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByGoogleID(info.GoogleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		businessName := req.BusinessName
		if businessName == "" {
			businessName = info.Name
		}
		tenantID, err := s.tenants.ProvisionTenant(businessName, info.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to provision tenant: %w", err)
		}

		user = &User{
			Email:    info.Email,
			GoogleID: info.GoogleID,
			Name:     info.Name,
			Role:     RoleTenant,
			TenantID: &tenantID,
		}
		if err := s.users.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	return s.issueToken(user)
}

// GetUser loads a user by id string
func (s *Service) GetUser(userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(id)
}

func (s *Service) issueToken(user *User) (*AuthResponse, error) {
	claims := &TokenClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	}
	if user.TenantID != nil {
		claims.TenantID = user.TenantID.String()
	}

	token, expiresIn, err := s.jwt.GenerateAccessToken(claims)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		User:        user,
	}, nil
}
