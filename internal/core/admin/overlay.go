package admin

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minechat/minechat-be/internal/core/auth"
)

var ErrNotAdmin = errors.New("administrative role required")

// Session is one active view-as-tenant overlay, keyed by admin user id.
// Ephemeral by design: it lives in process memory and dies with the admin's
// session, never as persisted tenant data.
type Session struct {
	AdminID    string    `json:"admin_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	StartedAt  time.Time `json:"started_at"`
}

// TenantDirectory resolves the display attributes of the impersonation
// target. The inbox module provides the implementation.
type TenantDirectory interface {
	LookupTenant(tenantID uuid.UUID) (businessName string, err error)
}

// Overlay is the explicit impersonation side-table (admin id -> target
// tenant) queried at identity resolution.
type Overlay struct {
	tenants  TenantDirectory
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewOverlay(tenants TenantDirectory) *Overlay {
	return &Overlay{
		tenants:  tenants,
		sessions: make(map[string]*Session),
	}
}

// StartViewing begins impersonation for an admin. Starting a second view
// replaces the first.
func (o *Overlay) StartViewing(admin *auth.Identity, tenantID uuid.UUID) (*Session, error) {
	if admin == nil || admin.Role != auth.RoleAdmin {
		return nil, ErrNotAdmin
	}

	name, err := o.tenants.LookupTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("target tenant not found: %w", err)
	}

	session := &Session{
		AdminID:    admin.UserID,
		TenantID:   tenantID,
		TenantName: name,
		StartedAt:  time.Now(),
	}

	o.mu.Lock()
	o.sessions[admin.UserID] = session
	o.mu.Unlock()

	return session, nil
}

// StopViewing ends impersonation. Calling it with no active session is a
// no-op, not an error.
func (o *Overlay) StopViewing(adminID string) {
	o.mu.Lock()
	delete(o.sessions, adminID)
	o.mu.Unlock()
}

// Active returns the admin's current session, if any
func (o *Overlay) Active(adminID string) (*Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[adminID]
	return s, ok
}

// Resolve overlays the impersonated tenant identity when the caller has an
// active session; otherwise the identity is returned unchanged. The original
// admin identity rides along for UI banners.
func (o *Overlay) Resolve(identity *auth.Identity) *auth.Identity {
	if identity == nil {
		return nil
	}

	session, ok := o.Active(identity.UserID)
	if !ok {
		return identity
	}

	original := *identity
	return &auth.Identity{
		UserID:       identity.UserID,
		Email:        identity.Email,
		Name:         session.TenantName,
		Role:         auth.RoleTenant,
		TenantID:     session.TenantID.String(),
		OriginalUser: &original,
	}
}
