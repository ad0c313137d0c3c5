package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/modules/inbox/models"
)

// In-memory fakes standing in for the GORM repositories.

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[string]*models.ChannelConnection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]*models.ChannelConnection)}
}

func connKey(tenantID uuid.UUID, provider string) string {
	return tenantID.String() + "/" + provider
}

func (f *fakeConnectionRepo) GetByTenant(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *conn
	return &copied, nil
}

func (f *fakeConnectionRepo) GetConnectedByPage(provider, pageID string) (*models.ChannelConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		if conn.Provider == provider && conn.PageID == pageID && conn.Status == models.StatusConnected {
			copied := *conn
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConnectionRepo) SetAuthorizationPending(tenantID uuid.UUID, provider string) (*models.ChannelConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok {
		conn = &models.ChannelConnection{ID: uuid.New(), TenantID: tenantID, Provider: provider}
		f.conns[connKey(tenantID, provider)] = conn
	}
	conn.Status = models.StatusAuthorizationPending
	conn.PageID = ""
	conn.PageName = ""
	conn.CredentialRef = ""
	conn.ConnectedAt = nil
	conn.UpdatedAt = time.Now()
	copied := *conn
	return &copied, nil
}

func (f *fakeConnectionRepo) SetPageSelectionPending(tenantID uuid.UUID, provider, credentialRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conn.Status = models.StatusPageSelectionPending
	conn.CredentialRef = credentialRef
	conn.UpdatedAt = time.Now()
	return nil
}

func (f *fakeConnectionRepo) ReplaceActivePage(tenantID uuid.UUID, provider, pageID, pageName, credentialRef string) (*models.ChannelConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	now := time.Now()
	conn.PageID = pageID
	conn.PageName = pageName
	conn.CredentialRef = credentialRef
	conn.Status = models.StatusConnected
	conn.ConnectedAt = &now
	conn.UpdatedAt = now
	copied := *conn
	return &copied, nil
}

func (f *fakeConnectionRepo) MarkStatus(tenantID uuid.UUID, provider, status string, clearCredential bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conn.Status = status
	if clearCredential {
		conn.CredentialRef = ""
		conn.ConnectedAt = nil
	}
	conn.UpdatedAt = time.Now()
	return nil
}

func (f *fakeConnectionRepo) MarkTokenInvalid(tenantID uuid.UUID, provider, credentialRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connKey(tenantID, provider)]
	if !ok || conn.CredentialRef != credentialRef {
		return nil
	}
	conn.Status = models.StatusTokenInvalid
	conn.CredentialRef = ""
	conn.ConnectedAt = nil
	conn.UpdatedAt = time.Now()
	return nil
}

func (f *fakeConnectionRepo) ExpireStalePending(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, conn := range f.conns {
		pending := conn.Status == models.StatusAuthorizationPending || conn.Status == models.StatusPageSelectionPending
		if pending && conn.UpdatedAt.Before(cutoff) {
			conn.Status = models.StatusDisconnected
			conn.CredentialRef = ""
			n++
		}
	}
	return n, nil
}

type fakeConversationRepo struct {
	mu             sync.Mutex
	conversations  map[string]*models.Conversation
	messages       map[uuid.UUID][]models.Message
	upsertErr      error
	upsertErrTimes int // upsertErr fires this many times; 0 means always
	upsertCalls    int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[uuid.UUID][]models.Message),
	}
}

func (f *fakeConversationRepo) UpsertInbound(tenantID uuid.UUID, provider, customerID, customerName string, msg *models.Message) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil && (f.upsertErrTimes == 0 || f.upsertCalls < f.upsertErrTimes) {
		f.upsertCalls++
		return nil, f.upsertErr
	}
	f.upsertCalls++
	key := fmt.Sprintf("%s/%s/%s", tenantID, provider, customerID)
	conv, ok := f.conversations[key]
	if !ok {
		conv = &models.Conversation{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Provider:   provider,
			CustomerID: customerID,
		}
		f.conversations[key] = conv
	}
	msg.ConversationID = conv.ID
	msg.Direction = models.DirectionCustomerInbound
	msg.CreatedAt = time.Now()
	f.messages[conv.ID] = append(f.messages[conv.ID], *msg)
	conv.UnreadCount++
	conv.LastMessageAt = msg.CreatedAt
	if customerName != "" {
		conv.CustomerName = customerName
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) RecordOutbound(conversationID uuid.UUID, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ConversationID = conversationID
	msg.CreatedAt = time.Now()
	f.messages[conversationID] = append(f.messages[conversationID], *msg)
	return nil
}

func (f *fakeConversationRepo) GetByID(id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.ID == id {
			copied := *conv
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConversationRepo) List(tenantID uuid.UUID) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Conversation
	for _, conv := range f.conversations {
		if conv.TenantID == tenantID && !conv.Archived {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) Messages(conversationID uuid.UUID, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeConversationRepo) ResetUnread(tenantID uuid.UUID, conversationID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.TenantID != tenantID {
			continue
		}
		if conversationID != nil && conv.ID != *conversationID {
			continue
		}
		conv.UnreadCount = 0
	}
	return nil
}

func (f *fakeConversationRepo) UnreadTotal(tenantID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, conv := range f.conversations {
		if conv.TenantID == tenantID && !conv.Archived {
			total += int64(conv.UnreadCount)
		}
	}
	return total, nil
}

type fakeEventRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{seen: make(map[string]bool)}
}

func (f *fakeEventRepo) Record(dedupKey string, rawPayload []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[dedupKey] {
		return false, nil
	}
	f.seen[dedupKey] = true
	return true, nil
}

func (f *fakeEventRepo) Release(dedupKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, dedupKey)
	return nil
}

func (f *fakeEventRepo) PurgeEventsBefore(cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeSecrets seals by prefixing; Open on an unsealed ref fails
type fakeSecrets struct{}

func (fakeSecrets) Seal(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (fakeSecrets) Open(ref string) (string, error) {
	if len(ref) < 7 || ref[:7] != "sealed:" {
		return "", fmt.Errorf("ref is not sealed")
	}
	return ref[7:], nil
}

type fakeGraphAPI struct {
	mu           sync.Mutex
	pages        []messenger.Page
	exchangeErr  error
	listErr      error
	sendErr      error
	sendErrTimes int // sendErr fires this many times; 0 means always
	sendGate     chan struct{} // when set, SendMessage parks here before returning
	sendCalls    int
	sentTexts    []string
	subscribed   []string
}

func (f *fakeGraphAPI) AuthorizationURL(state string) string {
	return "https://facebook.example/dialog/oauth?state=" + state
}

func (f *fakeGraphAPI) ExchangeCode(ctx context.Context, code string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return "user-token-for-" + code, nil
}

func (f *fakeGraphAPI) ListPages(ctx context.Context, userToken string) ([]messenger.Page, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages, nil
}

func (f *fakeGraphAPI) SubscribePage(ctx context.Context, pageID, pageToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, pageID)
	return nil
}

func (f *fakeGraphAPI) SendMessage(ctx context.Context, pageToken, recipientID, text string, attachments []messenger.Attachment) (string, error) {
	f.mu.Lock()
	f.sendCalls++
	call := f.sendCalls
	gate := f.sendGate
	fail := f.sendErr != nil && (f.sendErrTimes == 0 || call <= f.sendErrTimes)
	err := f.sendErr
	f.mu.Unlock()

	// Park outside the mutex so a held send never blocks other Graph calls
	if gate != nil {
		<-gate
	}

	if fail {
		return "", err
	}

	f.mu.Lock()
	f.sentTexts = append(f.sentTexts, text)
	f.mu.Unlock()
	return fmt.Sprintf("mid.%d", call), nil
}

func (f *fakeGraphAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDispatcher) DispatchReply(conv *models.Conversation, inboundText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inboundText)
}

func (f *fakeDispatcher) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.AIAssistantProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*models.AIAssistantProfile)}
}

func (f *fakeProfileRepo) GetByTenant(tenantID uuid.UUID) (*models.AIAssistantProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfileRepo) Save(profile *models.AIAssistantProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *profile
	f.profiles[profile.TenantID] = &copied
	return nil
}

func (f *fakeProfileRepo) Reset(tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, tenantID)
	return nil
}

type fakeBusinessRepo struct {
	profile  *models.BusinessProfile
	products []models.Product
}

func (f *fakeBusinessRepo) GetProfile(tenantID uuid.UUID) (*models.BusinessProfile, error) {
	if f.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.profile, nil
}

func (f *fakeBusinessRepo) ListProducts(tenantID uuid.UUID) ([]models.Product, error) {
	return f.products, nil
}

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[uuid.UUID]*models.Tenant)}
}

func (f *fakeTenantRepo) GetByID(id uuid.UUID) (*models.Tenant, error) {
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tenant, nil
}

func (f *fakeTenantRepo) ProvisionTenant(businessName, ownerEmail string) (uuid.UUID, error) {
	id := uuid.New()
	f.tenants[id] = &models.Tenant{ID: id, BusinessName: businessName, OwnerEmail: ownerEmail}
	return id, nil
}

func (f *fakeTenantRepo) LookupTenant(tenantID uuid.UUID) (string, error) {
	tenant, err := f.GetByID(tenantID)
	if err != nil {
		return "", err
	}
	return tenant.BusinessName, nil
}
