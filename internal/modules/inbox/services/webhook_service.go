package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"

	"github.com/minechat/minechat-be/internal/modules/inbox/models"
	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
)

var (
	ErrVerificationFailed = errors.New("webhook verification failed")
	ErrMalformedPayload   = errors.New("malformed webhook payload")
)

// ReplyDispatcher kicks the AI pipeline for an accepted inbound message.
// Implementations must not block the webhook request.
type ReplyDispatcher interface {
	DispatchReply(conv *models.Conversation, inboundText string)
}

// WebhookService is the sole entry point for inbound provider traffic
type WebhookService struct {
	verifyToken   string
	appSecret     string
	events        repositories.EventRepo
	conversations repositories.ConversationRepo
	connections   repositories.ConnectionRepo
	replies       ReplyDispatcher
}

func NewWebhookService(
	verifyToken, appSecret string,
	events repositories.EventRepo,
	conversations repositories.ConversationRepo,
	connections repositories.ConnectionRepo,
	replies ReplyDispatcher,
) *WebhookService {
	return &WebhookService{
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		events:        events,
		conversations: conversations,
		connections:   connections,
		replies:       replies,
	}
}

// VerifyChallenge implements the subscription handshake. Pure: echoes the
// challenge back only on an exact verify-token match.
func (s *WebhookService) VerifyChallenge(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != s.verifyToken {
		return "", ErrVerificationFailed
	}
	return challenge, nil
}

// ValidSignature checks the X-Hub-Signature-256 header (HMAC-SHA256 over the
// raw body with the app secret). A payload failing this check is dropped
// before any persistence.
func (s *WebhookService) ValidSignature(body []byte, signatureHeader string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signatureHeader, prefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signatureHeader, prefix)))
}

// webhookPayload is the Messenger Platform delivery envelope
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string           `json:"id"` // page id
		Time      int64            `json:"time"`
		Messaging []messagingEvent `json:"messaging"`
	} `json:"entry"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID         string `json:"mid"`
		Text        string `json:"text"`
		IsEcho      bool   `json:"is_echo"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				URL string `json:"url"`
			} `json:"payload"`
		} `json:"attachments"`
	} `json:"message"`
	Delivery *json.RawMessage `json:"delivery"`
	Read     *json.RawMessage `json:"read"`
}

// HandleDelivery ingests one webhook delivery. Each messaging event is
// handled independently so one bad event never blocks the rest; per-event
// failures are logged and the delivery is still acknowledged. The only
// error returned is ErrMalformedPayload; everything structurally valid
// must be acked so the provider stops redelivering.
func (s *WebhookService) HandleDelivery(body []byte) error {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ErrMalformedPayload
	}

	if payload.Object != "page" {
		log.Printf("⏭️ Ignoring webhook for object type %q", payload.Object)
		return nil
	}

	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if err := s.processEvent(entry.ID, event, body); err != nil {
				log.Printf("⚠️ Failed to process event on page %s: %v", entry.ID, err)
			}
		}
	}

	return nil
}

func (s *WebhookService) processEvent(pageID string, event messagingEvent, raw []byte) error {
	// Only customer-inbound text/media messages enter the pipeline.
	// Echoes, delivery receipts and read receipts are resolved here at the
	// boundary, never passed on.
	if event.Message == nil || event.Delivery != nil || event.Read != nil {
		return nil
	}
	if event.Message.IsEcho || event.Message.MID == "" || event.Sender.ID == "" {
		return nil
	}

	conn, err := s.connections.GetConnectedByPage(models.ProviderFacebook, pageID)
	if err != nil {
		log.Printf("⏭️ Dropping event for unbound page %s", pageID)
		return nil
	}

	dedupKey := fmt.Sprintf("%s:%s:%s", models.ProviderFacebook, pageID, event.Message.MID)
	fresh, err := s.events.Record(dedupKey, raw)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	if !fresh {
		// Provider redelivery: already applied, ack silently
		log.Printf("⏭️ Duplicate event %s ignored", dedupKey)
		return nil
	}

	msg := &models.Message{
		Content:    event.Message.Text,
		ExternalID: event.Message.MID,
		Direction:  models.DirectionCustomerInbound,
	}
	if len(event.Message.Attachments) > 0 {
		type attachmentRef struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		}
		refs := make([]attachmentRef, 0, len(event.Message.Attachments))
		for _, att := range event.Message.Attachments {
			refs = append(refs, attachmentRef{Type: att.Type, URL: att.Payload.URL})
		}
		if encoded, err := json.Marshal(refs); err == nil {
			msg.Attachments = datatypes.JSON(encoded)
		}
	}

	conv, err := s.conversations.UpsertInbound(conn.TenantID, models.ProviderFacebook, event.Sender.ID, "", msg)
	if err != nil {
		// The key was claimed but the message never landed. Release it so
		// the provider's redelivery is not acked as a duplicate.
		if relErr := s.events.Release(dedupKey); relErr != nil {
			log.Printf("⚠️ Failed to release dedup key %s: %v", dedupKey, relErr)
		}
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	if event.Message.Text != "" && s.replies != nil {
		s.replies.DispatchReply(conv, event.Message.Text)
	}

	return nil
}
