package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/creditlab/payment-service/internal/module/payment/provider"
	apperrors "github.com/creditlab/payment-service/internal/utils/errors"
	"github.com/creditlab/payment-service/internal/utils/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider event types the service reacts to. Anything else is
// acknowledged and ignored.
const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventCheckoutExpired       = "checkout.session.expired"
	eventCheckoutPaymentFailed = "checkout.session.async_payment_failed"
	eventChargeRefunded        = "charge.refunded"
)

// SignatureHeader is the provider signature header on webhook requests.
const SignatureHeader = "Stripe-Signature"

// webhookEvent is the slice of a provider event envelope we need for
// dispatch. The full payload is stored verbatim alongside.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookHandler ingests provider webhook events and drives the payment
// lifecycle from them.
type WebhookHandler struct {
	svc      *Service
	provider provider.Provider
	repo     Repository
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *Service, prov provider.Provider, repo Repository, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:      svc,
		provider: prov,
		repo:     repo,
		metrics:  m,
		logger:   logger,
	}
}

// Handle processes POST /webhooks/stripe. The raw body is verified
// against the signature header before anything is parsed. Processing
// failures return 500 so the provider redelivers; the event store makes
// the redelivery harmless.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	ctx := c.Request.Context()

	stored, err := h.repo.GetWebhookEvent(ctx, event.ID)
	if err != nil {
		h.logger.Error("webhook event lookup failed", zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	// Only a cleanly processed event short-circuits. A stored failure
	// means the prior attempt returned 500, so this delivery is the
	// provider's retry and must re-run the dispatch.
	if stored != nil && stored.Processed && stored.Error == nil {
		h.metrics.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
		h.logger.Info("webhook event already processed",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "already_processed"})
		return
	}

	if stored == nil {
		if err := h.repo.CreateWebhookEvent(ctx, &WebhookEvent{
			EventID: event.ID,
			Type:    event.Type,
			Payload: string(payload),
		}); err != nil {
			h.logger.Error("webhook event store failed", zap.String("event_id", event.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}
	}

	processErr := h.dispatch(ctx, event)

	if err := h.repo.MarkWebhookEventProcessed(ctx, event.ID, processErr); err != nil {
		h.logger.Error("webhook event update failed", zap.String("event_id", event.ID), zap.Error(err))
	}

	if processErr != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		h.logger.Error("webhook event processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(processErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	h.metrics.WebhookEventsTotal.WithLabelValues(event.Type, "success").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// dispatch routes a verified event to the lifecycle operation it implies.
func (h *WebhookHandler) dispatch(ctx context.Context, event webhookEvent) error {
	switch event.Type {
	case eventCheckoutCompleted:
		paymentID, err := h.paymentIDFrom(event)
		if err != nil {
			return err
		}
		h.logger.Info("payment succeeded", zap.String("payment_id", paymentID.String()))
		_, err = h.svc.Confirm(ctx, SystemPrincipal, paymentID)
		return err

	case eventCheckoutExpired, eventCheckoutPaymentFailed:
		paymentID, err := h.paymentIDFrom(event)
		if err != nil {
			return err
		}
		h.logger.Warn("payment failed", zap.String("payment_id", paymentID.String()))
		_, err = h.svc.Fail(ctx, SystemPrincipal, paymentID)
		return err

	case eventChargeRefunded:
		paymentID, err := h.paymentIDFrom(event)
		if err != nil {
			return err
		}
		h.logger.Info("payment refunded", zap.String("payment_id", paymentID.String()))
		_, err = h.svc.Refund(ctx, SystemPrincipal, paymentID)
		return err

	default:
		h.logger.Info("unhandled event type", zap.String("type", event.Type))
		return nil
	}
}

func (h *WebhookHandler) paymentIDFrom(event webhookEvent) (uuid.UUID, error) {
	raw, ok := event.Data.Object.Metadata[metadataPaymentID]
	if !ok || raw == "" {
		return uuid.Nil, apperrors.BadRequest("event metadata missing payment id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("event metadata has malformed payment id")
	}
	return id, nil
}
