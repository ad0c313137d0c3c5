package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

type ConnectionRepo interface {
	GetByTenant(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error)
	GetConnectedByPage(provider, pageID string) (*models.ChannelConnection, error)
	SetAuthorizationPending(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error)
	SetPageSelectionPending(tenantID uuid.UUID, provider, credentialRef string) error
	ReplaceActivePage(tenantID uuid.UUID, provider, pageID, pageName, credentialRef string) (*models.ChannelConnection, error)
	MarkStatus(tenantID uuid.UUID, provider, status string, clearCredential bool) error
	MarkTokenInvalid(tenantID uuid.UUID, provider, credentialRef string) error
	ExpireStalePending(cutoff time.Time) (int64, error)
}

type connectionRepo struct {
	db *gorm.DB
}

func NewConnectionRepo(db *gorm.DB) ConnectionRepo {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) GetByTenant(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection
	err := r.db.Where("tenant_id = ? AND provider = ?", tenantID, provider).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetConnectedByPage maps an inbound webhook page id back to its tenant.
// Only connected rows qualify; events for torn-down pages are dropped.
func (r *connectionRepo) GetConnectedByPage(provider, pageID string) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection
	err := r.db.Where("provider = ? AND page_id = ? AND status = ?", provider, pageID, models.StatusConnected).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// SetAuthorizationPending upserts the (tenant, provider) row into the
// authorization_pending state, overwriting any stale in-flight attempt.
func (r *connectionRepo) SetAuthorizationPending(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND provider = ?", tenantID, provider).
			First(&conn).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			conn = models.ChannelConnection{
				TenantID: tenantID,
				Provider: provider,
				Status:   models.StatusAuthorizationPending,
			}
			return tx.Create(&conn).Error
		}

		conn.Status = models.StatusAuthorizationPending
		conn.PageID = ""
		conn.PageName = ""
		conn.CredentialRef = ""
		conn.ConnectedAt = nil
		return tx.Save(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) SetPageSelectionPending(tenantID uuid.UUID, provider, credentialRef string) error {
	return r.db.Model(&models.ChannelConnection{}).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		Updates(map[string]interface{}{
			"status":         models.StatusPageSelectionPending,
			"credential_ref": credentialRef,
		}).Error
}

// ReplaceActivePage binds the credential to one page and transitions to
// connected in a single transactional update. The unique (tenant, provider)
// row plus the row lock make the swap atomic: there is no window where two
// pages are bound.
func (r *connectionRepo) ReplaceActivePage(tenantID uuid.UUID, provider, pageID, pageName, credentialRef string) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND provider = ?", tenantID, provider).
			First(&conn).Error; err != nil {
			return err
		}

		now := time.Now()
		conn.PageID = pageID
		conn.PageName = pageName
		conn.CredentialRef = credentialRef
		conn.Status = models.StatusConnected
		conn.ConnectedAt = &now
		return tx.Save(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// MarkStatus moves the row to a terminal or failure state.
// clearCredential revokes the locally stored credential reference.
func (r *connectionRepo) MarkStatus(tenantID uuid.UUID, provider, status string, clearCredential bool) error {
	updates := map[string]interface{}{"status": status}
	if clearCredential {
		updates["credential_ref"] = ""
		updates["connected_at"] = nil
	}
	return r.db.Model(&models.ChannelConnection{}).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		Updates(updates).Error
}

// MarkTokenInvalid flips the row to token_invalid and revokes the stored
// credential, but only while credentialRef is still the bound one. A send
// racing a page re-selection rejects a superseded token; the WHERE clause
// makes that rejection a no-op against the fresh binding.
func (r *connectionRepo) MarkTokenInvalid(tenantID uuid.UUID, provider, credentialRef string) error {
	return r.db.Model(&models.ChannelConnection{}).
		Where("tenant_id = ? AND provider = ? AND credential_ref = ?", tenantID, provider, credentialRef).
		Updates(map[string]interface{}{
			"status":         models.StatusTokenInvalid,
			"credential_ref": "",
			"connected_at":   nil,
		}).Error
}

// ExpireStalePending flips abandoned in-flight authorizations back to
// disconnected. There is no server-side cancellation; stale attempts just
// age out.
func (r *connectionRepo) ExpireStalePending(cutoff time.Time) (int64, error) {
	result := r.db.Model(&models.ChannelConnection{}).
		Where("status IN ? AND updated_at < ?",
			[]string{models.StatusAuthorizationPending, models.StatusPageSelectionPending}, cutoff).
		Updates(map[string]interface{}{
			"status":         models.StatusDisconnected,
			"credential_ref": "",
		})
	return result.RowsAffected, result.Error
}
