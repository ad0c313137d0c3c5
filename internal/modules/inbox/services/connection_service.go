package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/core/secrets"
	"github.com/minechat/minechat-be/internal/modules/inbox/models"
	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
)

// GraphAPI is the provider surface the connection manager needs.
// *messenger.Client satisfies it; tests substitute a fake.
type GraphAPI interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListPages(ctx context.Context, userToken string) ([]messenger.Page, error)
	SubscribePage(ctx context.Context, pageID, pageToken string) error
	SendMessage(ctx context.Context, pageToken, recipientID, text string, attachments []messenger.Attachment) (string, error)
}

// ConnectionService owns the channel authorization lifecycle and exposes
// the send capability the reply pipeline uses.
type ConnectionService struct {
	connections repositories.ConnectionRepo
	graph       GraphAPI
	secrets     secrets.Store
	locks       *keyedMutex
}

func NewConnectionService(connections repositories.ConnectionRepo, graph GraphAPI, secretStore secrets.Store) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		graph:       graph,
		secrets:     secretStore,
		locks:       newKeyedMutex(),
	}
}

// StartAuthorization moves the tenant into authorization_pending and
// returns the consent redirect target. A stale pending attempt is simply
// overwritten.
func (s *ConnectionService) StartAuthorization(tenantID uuid.UUID) (string, error) {
	unlock := s.locks.Lock(tenantID.String())
	defer unlock()

	if _, err := s.connections.SetAuthorizationPending(tenantID, models.ProviderFacebook); err != nil {
		return "", fmt.Errorf("failed to stage authorization: %w", err)
	}

	return s.graph.AuthorizationURL(tenantID.String()), nil
}

// CompleteAuthorization exchanges the callback code for a user credential
// and returns the pages the tenant controls. callbackErr carries the
// provider's error query parameter when the tenant declined consent.
func (s *ConnectionService) CompleteAuthorization(ctx context.Context, tenantID uuid.UUID, code, callbackErr string) ([]messenger.Page, error) {
	unlock := s.locks.Lock(tenantID.String())
	defer unlock()

	if callbackErr != "" {
		_ = s.connections.MarkStatus(tenantID, models.ProviderFacebook, models.StatusDisconnected, true)
		return nil, messenger.NewProviderError(messenger.CodeAuthorizationDenied, "tenant declined consent")
	}

	userToken, err := s.graph.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	ref, err := s.secrets.Seal(userToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal credential: %w", err)
	}

	if err := s.connections.SetPageSelectionPending(tenantID, models.ProviderFacebook, ref); err != nil {
		return nil, fmt.Errorf("failed to stage page selection: %w", err)
	}

	pages, err := s.graph.ListPages(ctx, userToken)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// SelectPage binds the credential to one page and transitions to connected.
// Re-selecting while connected to a different page is an atomic replace.
func (s *ConnectionService) SelectPage(ctx context.Context, tenantID uuid.UUID, pageID string) (*models.ChannelConnection, error) {
	unlock := s.locks.Lock(tenantID.String())
	defer unlock()

	conn, err := s.connections.GetByTenant(tenantID, models.ProviderFacebook)
	if err != nil {
		return nil, fmt.Errorf("no authorization in progress: %w", err)
	}
	if conn.CredentialRef == "" {
		return nil, messenger.NewProviderError(messenger.CodeAuthorizationExpired, "authorization state expired, restart connection")
	}

	userToken, err := s.secrets.Open(conn.CredentialRef)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential: %w", err)
	}

	pages, err := s.graph.ListPages(ctx, userToken)
	if err != nil {
		return nil, err
	}

	var selected *messenger.Page
	for i := range pages {
		if pages[i].ID == pageID {
			selected = &pages[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("page %s is not controlled by this authorization", pageID)
	}

	pageRef, err := s.secrets.Seal(selected.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal page credential: %w", err)
	}

	updated, err := s.connections.ReplaceActivePage(tenantID, models.ProviderFacebook, selected.ID, selected.Name, pageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to bind page: %w", err)
	}

	// Webhook subscription is re-asserted on every bind; a failure here
	// leaves the connection usable for sends, so log and continue.
	if err := s.graph.SubscribePage(ctx, selected.ID, selected.AccessToken); err != nil {
		log.Printf("⚠️ Failed to subscribe page %s to webhooks: %v", selected.ID, err)
	}

	return updated, nil
}

// Disconnect revokes the stored credential reference. Idempotent:
// disconnecting an already-disconnected tenant is a no-op.
func (s *ConnectionService) Disconnect(tenantID uuid.UUID) error {
	unlock := s.locks.Lock(tenantID.String())
	defer unlock()

	conn, err := s.connections.GetByTenant(tenantID, models.ProviderFacebook)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if conn.Status == models.StatusDisconnected {
		return nil
	}

	return s.connections.MarkStatus(tenantID, models.ProviderFacebook, models.StatusDisconnected, true)
}

// Status reports the current connection state, synthesizing a disconnected
// record for tenants that never connected.
func (s *ConnectionService) Status(tenantID uuid.UUID) (*models.ChannelConnection, error) {
	conn, err := s.connections.GetByTenant(tenantID, models.ProviderFacebook)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ChannelConnection{
				TenantID: tenantID,
				Provider: models.ProviderFacebook,
				Status:   models.StatusDisconnected,
			}, nil
		}
		return nil, err
	}
	return conn, nil
}

// Send delivers a message to a customer through the bound page. A provider
// credential rejection flips the connection to token_invalid so the
// dashboard surfaces "reconnect required". Sends run without the tenant
// lock; the credential the send used is re-checked on the failure path, so
// rejecting a token that a concurrent re-selection already replaced leaves
// the fresh binding untouched.
func (s *ConnectionService) Send(ctx context.Context, tenantID uuid.UUID, customerID, content string, attachments []messenger.Attachment) (string, error) {
	conn, err := s.connections.GetByTenant(tenantID, models.ProviderFacebook)
	if err != nil || conn.Status != models.StatusConnected || conn.CredentialRef == "" {
		return "", messenger.NewProviderError(messenger.CodeTokenInvalid, "channel not connected")
	}
	usedRef := conn.CredentialRef

	pageToken, err := s.secrets.Open(usedRef)
	if err != nil {
		return "", fmt.Errorf("failed to open credential: %w", err)
	}

	externalID, err := s.graph.SendMessage(ctx, pageToken, customerID, content, attachments)
	if err != nil {
		if messenger.IsCode(err, messenger.CodeTokenInvalid) {
			if markErr := s.connections.MarkTokenInvalid(tenantID, models.ProviderFacebook, usedRef); markErr != nil {
				log.Printf("⚠️ Failed to mark connection token_invalid: %v", markErr)
			}
		}
		return "", err
	}

	return externalID, nil
}
