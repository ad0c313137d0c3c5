package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/minechat/minechat-be/internal/core/llm"
	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/modules/inbox/models"
	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
)

const (
	maxSendAttempts = 4
	backoffBase     = 2 * time.Second
	replyTimeout    = 60 * time.Second
)

// Generator produces reply text from an assembled context
type Generator interface {
	GenerateResponse(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
	GetProviderName() string
}

// Sender is the connection manager's send capability
type Sender interface {
	Send(ctx context.Context, tenantID uuid.UUID, customerID, content string, attachments []messenger.Attachment) (string, error)
}

// ReplyService turns an inbound customer message into an outbound reply
type ReplyService struct {
	conversations repositories.ConversationRepo
	profiles      repositories.ProfileRepo
	business      repositories.BusinessRepo
	tenants       repositories.TenantRepo
	llm           Generator
	sender        Sender
	locks         *keyedMutex

	// sleep is swapped in tests to avoid real backoff waits
	sleep func(time.Duration)
	wg    sync.WaitGroup
}

func NewReplyService(
	conversations repositories.ConversationRepo,
	profiles repositories.ProfileRepo,
	business repositories.BusinessRepo,
	tenants repositories.TenantRepo,
	generator Generator,
	sender Sender,
) *ReplyService {
	return &ReplyService{
		conversations: conversations,
		profiles:      profiles,
		business:      business,
		tenants:       tenants,
		llm:           generator,
		sender:        sender,
		locks:         newKeyedMutex(),
		sleep:         time.Sleep,
	}
}

// DispatchReply runs the pipeline asynchronously so the webhook request can
// acknowledge immediately.
func (s *ReplyService) DispatchReply(conv *models.Conversation, inboundText string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		s.HandleInbound(ctx, conv, inboundText)
	}()
}

// Wait blocks until all in-flight replies settle (shutdown and tests)
func (s *ReplyService) Wait() {
	s.wg.Wait()
}

// HandleInbound generates and dispatches one reply. Generation and dispatch
// for a single conversation are serialized: a second inbound message for the
// same conversation waits for the in-flight reply to settle, so replies
// never interleave or reorder toward the same customer.
func (s *ReplyService) HandleInbound(ctx context.Context, conv *models.Conversation, inboundText string) {
	unlock := s.locks.Lock(conv.ID.String())
	defer unlock()

	gc := s.assembleContext(conv.TenantID)
	systemPrompt := llm.BuildSystemPrompt(gc)
	maxTokens := llm.MaxTokensFor(gc.ResponseLength)

	reply, err := s.llm.GenerateResponse(ctx, systemPrompt, inboundText, maxTokens)
	if err != nil {
		log.Printf("❌ LLM error (%s): %v", s.llm.GetProviderName(), err)
		reply = "Sorry, I'm having trouble responding right now. Please try again in a moment."
	}

	attachments := s.productAttachments(reply, gc.Products)

	s.dispatch(ctx, conv, reply, attachments)
}

// assembleContext gathers persona, guidelines and business reference data.
// Missing profile data degrades to the default persona instead of failing.
func (s *ReplyService) assembleContext(tenantID uuid.UUID) *llm.GenerationContext {
	gc := &llm.GenerationContext{ResponseLength: models.ResponseLengthNormal}

	if tenant, err := s.tenants.GetByID(tenantID); err == nil {
		gc.BusinessName = tenant.BusinessName
	}

	profile, err := s.profiles.GetByTenant(tenantID)
	if err != nil {
		profile = models.DefaultProfile(tenantID, gc.BusinessName)
	}
	gc.AssistantName = profile.Name
	gc.IntroMessage = profile.IntroMessage
	gc.Description = profile.Description
	gc.Guidelines = profile.Guidelines
	if profile.ResponseLength != "" {
		gc.ResponseLength = profile.ResponseLength
	}

	if biz, err := s.business.GetProfile(tenantID); err == nil {
		var parts []string
		if biz.Description != "" {
			parts = append(parts, biz.Description)
		}
		if biz.Address != "" {
			parts = append(parts, "Address: "+biz.Address)
		}
		if biz.Phone != "" {
			parts = append(parts, "Phone: "+biz.Phone)
		}
		if biz.Website != "" {
			parts = append(parts, "Website: "+biz.Website)
		}
		gc.BusinessInfo = strings.Join(parts, "\n")
		if gc.BusinessName == "" {
			gc.BusinessName = biz.CompanyName
		}
	}

	if products, err := s.business.ListProducts(tenantID); err == nil {
		for _, p := range products {
			gc.Products = append(gc.Products, llm.ProductInfo{
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				ImageURL:    p.ImageURL,
			})
		}
	}

	return gc
}

// productAttachments attaches the image of the first catalog product the
// reply references by name
func (s *ReplyService) productAttachments(reply string, products []llm.ProductInfo) []messenger.Attachment {
	lower := strings.ToLower(reply)
	for _, p := range products {
		if p.ImageURL == "" || p.Name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p.Name)) {
			return []messenger.Attachment{{Type: "image", URL: p.ImageURL}}
		}
	}
	return nil
}

// dispatch sends the reply with exponential backoff on throttling, then
// records the outbound message. Failures are persisted as undeliverable
// outbound messages, never silently dropped.
func (s *ReplyService) dispatch(ctx context.Context, conv *models.Conversation, reply string, attachments []messenger.Attachment) {
	var externalID string
	var sendErr error

	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		externalID, sendErr = s.sender.Send(ctx, conv.TenantID, conv.CustomerID, reply, attachments)
		if sendErr == nil {
			break
		}
		if !messenger.IsCode(sendErr, messenger.CodeRateLimited) {
			break
		}
		if attempt < maxSendAttempts-1 {
			backoff := backoffBase * time.Duration(1<<attempt)
			log.Printf("⏳ Rate limited, retrying in %s (attempt %d/%d)", backoff, attempt+1, maxSendAttempts)
			s.sleep(backoff)
		}
	}

	msg := &models.Message{
		Direction:      models.DirectionAIOutbound,
		Content:        reply,
		ExternalID:     externalID,
		DeliveryStatus: models.DeliverySent,
	}
	if len(attachments) > 0 {
		if encoded, err := json.Marshal(attachments); err == nil {
			msg.Attachments = datatypes.JSON(encoded)
		}
	}
	if sendErr != nil {
		msg.DeliveryStatus = models.DeliveryFailed
		msg.FailureReason = string(messenger.CodeOf(sendErr))
		log.Printf("❌ Failed to send reply for conversation %s: %v", conv.ID, sendErr)
	}

	if err := s.conversations.RecordOutbound(conv.ID, msg); err != nil {
		log.Printf("⚠️ Failed to record outbound message: %v", err)
	}
}
