package admin

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minechat/minechat-be/internal/core/auth"
)

type fakeDirectory struct {
	names map[uuid.UUID]string
}

func (f *fakeDirectory) LookupTenant(tenantID uuid.UUID) (string, error) {
	name, ok := f.names[tenantID]
	if !ok {
		return "", fmt.Errorf("tenant not found")
	}
	return name, nil
}

func adminIdentity() *auth.Identity {
	return &auth.Identity{UserID: "admin-1", Email: "ops@minechat.ai", Role: auth.RoleAdmin}
}

func TestStartViewingRequiresAdminRole(t *testing.T) {
	t.Parallel()
	overlay := NewOverlay(&fakeDirectory{})

	_, err := overlay.StartViewing(&auth.Identity{UserID: "u1", Role: auth.RoleTenant}, uuid.New())
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = overlay.StartViewing(nil, uuid.New())
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestStartViewingUnknownTenant(t *testing.T) {
	t.Parallel()
	overlay := NewOverlay(&fakeDirectory{})

	_, err := overlay.StartViewing(adminIdentity(), uuid.New())
	assert.Error(t, err)
	_, active := overlay.Active("admin-1")
	assert.False(t, active)
}

func TestResolveOverlaysTenantIdentity(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()
	overlay := NewOverlay(&fakeDirectory{names: map[uuid.UUID]string{tenantID: "Beanhaus"}})
	admin := adminIdentity()

	session, err := overlay.StartViewing(admin, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "Beanhaus", session.TenantName)

	resolved := overlay.Resolve(admin)
	assert.Equal(t, auth.RoleTenant, resolved.Role)
	assert.Equal(t, tenantID.String(), resolved.TenantID)
	assert.True(t, resolved.IsImpersonated())
	require.NotNil(t, resolved.OriginalUser)
	assert.Equal(t, auth.RoleAdmin, resolved.OriginalUser.Role)
}

func TestResolvePassesThroughWithoutSession(t *testing.T) {
	t.Parallel()
	overlay := NewOverlay(&fakeDirectory{})
	identity := &auth.Identity{UserID: "u1", Role: auth.RoleTenant, TenantID: uuid.NewString()}

	resolved := overlay.Resolve(identity)
	assert.Same(t, identity, resolved)
	assert.Nil(t, overlay.Resolve(nil))
}

func TestStopViewingIsIdempotent(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()
	overlay := NewOverlay(&fakeDirectory{names: map[uuid.UUID]string{tenantID: "Beanhaus"}})
	admin := adminIdentity()

	_, err := overlay.StartViewing(admin, tenantID)
	require.NoError(t, err)

	overlay.StopViewing(admin.UserID)
	overlay.StopViewing(admin.UserID) // second stop is a no-op

	_, active := overlay.Active(admin.UserID)
	assert.False(t, active)
	assert.Same(t, admin, overlay.Resolve(admin))
}

func TestSecondViewReplacesFirst(t *testing.T) {
	t.Parallel()
	tenantA, tenantB := uuid.New(), uuid.New()
	overlay := NewOverlay(&fakeDirectory{names: map[uuid.UUID]string{
		tenantA: "Tenant A",
		tenantB: "Tenant B",
	}})
	admin := adminIdentity()

	_, err := overlay.StartViewing(admin, tenantA)
	require.NoError(t, err)
	_, err = overlay.StartViewing(admin, tenantB)
	require.NoError(t, err)

	session, active := overlay.Active(admin.UserID)
	require.True(t, active)
	assert.Equal(t, tenantB, session.TenantID)
}
