package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

func newConnectionFixture(pages ...messenger.Page) (*ConnectionService, *fakeConnectionRepo, *fakeGraphAPI) {
	connections := newFakeConnectionRepo()
	graph := &fakeGraphAPI{pages: pages}
	svc := NewConnectionService(connections, graph, fakeSecrets{})
	return svc, connections, graph
}

func TestStartAuthorization(t *testing.T) {
	t.Parallel()
	svc, connections, _ := newConnectionFixture()
	tenantID := uuid.New()

	url, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	assert.Contains(t, url, "state="+tenantID.String())

	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthorizationPending, conn.Status)
}

func TestCompleteAuthorizationListsPages(t *testing.T) {
	t.Parallel()
	svc, connections, _ := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
		messenger.Page{ID: "page_b", Name: "Page B", AccessToken: "token-b"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)

	pages, err := svc.CompleteAuthorization(context.Background(), tenantID, "the-code", "")
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPageSelectionPending, conn.Status)
	assert.NotEmpty(t, conn.CredentialRef)
}

func TestCompleteAuthorizationDeniedConsent(t *testing.T) {
	t.Parallel()
	svc, connections, _ := newConnectionFixture()
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)

	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "", "access_denied")
	require.Error(t, err)
	assert.True(t, messenger.IsCode(err, messenger.CodeAuthorizationDenied))

	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, conn.Status)
	assert.Empty(t, conn.CredentialRef)
}

func TestSelectPageConnects(t *testing.T) {
	t.Parallel()
	svc, connections, graph := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)

	conn, err := svc.SelectPage(context.Background(), tenantID, "page_a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, conn.Status)
	assert.Equal(t, "page_a", conn.PageID)
	assert.Equal(t, "Page A", conn.PageName)
	assert.NotNil(t, conn.ConnectedAt)
	assert.Equal(t, []string{"page_a"}, graph.subscribed)

	// stored credential is the page token, not the user token
	stored, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, "sealed:token-a", stored.CredentialRef)
}

func TestSelectPageRejectsForeignPage(t *testing.T) {
	t.Parallel()
	svc, _, _ := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)

	_, err = svc.SelectPage(context.Background(), tenantID, "page_not_mine")
	assert.Error(t, err)
}

func TestSelectPageReplacesActivePage(t *testing.T) {
	t.Parallel()
	svc, connections, _ := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
		messenger.Page{ID: "page_b", Name: "Page B", AccessToken: "token-b"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)
	_, err = svc.SelectPage(context.Background(), tenantID, "page_a")
	require.NoError(t, err)

	conn, err := svc.SelectPage(context.Background(), tenantID, "page_b")
	require.NoError(t, err)
	assert.Equal(t, "page_b", conn.PageID)

	// exactly one connected row, bound to the new page
	_, err = connections.GetConnectedByPage(models.ProviderFacebook, "page_a")
	assert.Error(t, err)
	byPage, err := connections.GetConnectedByPage(models.ProviderFacebook, "page_b")
	require.NoError(t, err)
	assert.Equal(t, tenantID, byPage.TenantID)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, connections, _ := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
	)
	tenantID := uuid.New()

	// disconnecting a never-connected tenant is a no-op
	require.NoError(t, svc.Disconnect(tenantID))

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)
	_, err = svc.SelectPage(context.Background(), tenantID, "page_a")
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(tenantID))
	require.NoError(t, svc.Disconnect(tenantID))

	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, conn.Status)
	assert.Empty(t, conn.CredentialRef)
}

func TestStatusSynthesizesDisconnected(t *testing.T) {
	t.Parallel()
	svc, _, _ := newConnectionFixture()

	conn, err := svc.Status(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, conn.Status)
}

func TestSendMarksTokenInvalid(t *testing.T) {
	t.Parallel()
	svc, connections, graph := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)
	_, err = svc.SelectPage(context.Background(), tenantID, "page_a")
	require.NoError(t, err)

	graph.sendErr = messenger.NewProviderError(messenger.CodeTokenInvalid, "token expired")

	_, err = svc.Send(context.Background(), tenantID, "cust_42", "hi", nil)
	require.Error(t, err)
	assert.True(t, messenger.IsCode(err, messenger.CodeTokenInvalid))

	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTokenInvalid, conn.Status)
	assert.Empty(t, conn.CredentialRef, "credential must be revoked on token rejection")
}

func TestSendRacingPageReselection(t *testing.T) {
	t.Parallel()
	svc, connections, graph := newConnectionFixture(
		messenger.Page{ID: "page_a", Name: "Page A", AccessToken: "token-a"},
		messenger.Page{ID: "page_b", Name: "Page B", AccessToken: "token-b"},
	)
	tenantID := uuid.New()

	_, err := svc.StartAuthorization(tenantID)
	require.NoError(t, err)
	_, err = svc.CompleteAuthorization(context.Background(), tenantID, "code", "")
	require.NoError(t, err)
	_, err = svc.SelectPage(context.Background(), tenantID, "page_a")
	require.NoError(t, err)

	gate := make(chan struct{})
	graph.mu.Lock()
	graph.sendGate = gate
	graph.sendErr = messenger.NewProviderError(messenger.CodeTokenInvalid, "token expired")
	graph.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, sendErr := svc.Send(context.Background(), tenantID, "cust_42", "hi", nil)
		done <- sendErr
	}()
	require.Eventually(t, func() bool { return graph.calls() == 1 }, time.Second, 5*time.Millisecond)

	// Re-select while the send is still in flight with the old page token
	_, err = svc.SelectPage(context.Background(), tenantID, "page_b")
	require.NoError(t, err)

	close(gate)
	err = <-done
	require.Error(t, err)
	assert.True(t, messenger.IsCode(err, messenger.CodeTokenInvalid))

	// The rejection concerned the superseded credential; the fresh binding
	// must survive it
	conn, err := connections.GetByTenant(tenantID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, conn.Status)
	assert.Equal(t, "page_b", conn.PageID)
	assert.Equal(t, "sealed:token-b", conn.CredentialRef)
}

func TestSendWhileDisconnected(t *testing.T) {
	t.Parallel()
	svc, _, _ := newConnectionFixture()

	_, err := svc.Send(context.Background(), uuid.New(), "cust_42", "hi", nil)
	require.Error(t, err)
	assert.True(t, messenger.IsCode(err, messenger.CodeTokenInvalid))
}
