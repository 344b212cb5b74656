package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/creditlab/payment-service/internal/module/payment/provider"
	apperrors "github.com/creditlab/payment-service/internal/utils/errors"
	"github.com/creditlab/payment-service/internal/utils/metrics"
	"github.com/creditlab/payment-service/internal/utils/pagination"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// metadataPaymentID is the provider metadata key carrying our record id.
// Webhook events echo it back; it is the only link between a provider
// event and a payment row.
const metadataPaymentID = "paymentId"

// CreditService grants credits to a user after a successful payment.
type CreditService interface {
	AddCredits(ctx context.Context, userID uuid.UUID, amount float64) error
}

// Service implements the payment lifecycle and checkout flows.
type Service struct {
	repo     Repository
	provider provider.Provider
	credits  CreditService
	policy   AccessPolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger

	successURL string
	cancelURL  string
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	prov provider.Provider,
	credits CreditService,
	policy AccessPolicy,
	m *metrics.Metrics,
	successURL, cancelURL string,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		provider:   prov,
		credits:    credits,
		policy:     policy,
		metrics:    m,
		logger:     logger,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckoutSession creates a PENDING payment for the given credit
// bundle and a hosted checkout session for it.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, bundleKey string) (*CheckoutResponse, error) {
	bundle, ok := BundleByKey(bundleKey)
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown credit bundle %q", bundleKey))
	}

	payment := &Payment{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   bundle.Amount,
		Currency: bundle.Currency,
		Provider: s.provider.Name(),
		Status:   StatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	// The row exists before the provider call so session metadata can
	// reference it. A provider failure leaves a PENDING orphan behind;
	// there is no rollback, reconciliation happens out of band.
	sess, err := s.provider.CreateCheckoutSession(ctx, provider.CheckoutParams{
		PriceID:    bundle.PriceID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			metadataPaymentID: payment.ID.String(),
			"userId":          userID.String(),
			"bundle":          bundleKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.repo.SetTransactionID(ctx, payment.ID, sess.ID); err != nil {
		return nil, err
	}

	s.logger.Info("created checkout session",
		zap.String("payment_id", payment.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("bundle", bundleKey))

	return &CheckoutResponse{URL: sess.URL}, nil
}

// CreatePayment creates a payment record for the authenticated user. For
// provider "stripe" (any case) a payment intent is opened and its client
// secret returned; any other provider yields a bare PENDING record.
func (s *Service) CreatePayment(ctx context.Context, userID uuid.UUID, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	prov := strings.TrimSpace(req.Provider)
	if req.Amount <= 0 || currency == "" || prov == "" {
		return nil, apperrors.BadRequest("Missing required fields")
	}

	payment := &Payment{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   req.Amount,
		Currency: currency,
		Provider: strings.ToUpper(prov),
		Status:   StatusPending,
	}

	var clientSecret string
	if strings.EqualFold(prov, "stripe") {
		minorUnits := int64(math.Round(req.Amount * 100))
		intent, err := s.provider.CreatePaymentIntent(ctx, minorUnits, currency, map[string]string{
			metadataPaymentID: payment.ID.String(),
			"userId":          userID.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("create payment intent: %w", err)
		}
		payment.TransactionID = intent.ID
		clientSecret = intent.ClientSecret
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("created payment",
		zap.String("payment_id", payment.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("amount", payment.Amount),
		zap.String("provider", payment.Provider))

	return &CreatePaymentResponse{Payment: payment, ClientSecret: clientSecret}, nil
}

// GetPayment returns a single payment, restricted to its owner and
// administrators.
func (s *Service) GetPayment(ctx context.Context, p Principal, id uuid.UUID) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(p, payment.UserID) {
		return nil, apperrors.Forbidden("you can only view your own payments")
	}
	return payment, nil
}

// ListPayments returns a filtered page across all users.
func (s *Service) ListPayments(ctx context.Context, query ListQuery) (*ListResponse, error) {
	statusFilter, err := ParseStatusFilter(query.Status)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	pg := pagination.Pagination{Page: query.Page, Limit: query.Limit}
	pg.Normalize()
	payments, total, err := s.repo.List(ctx, ListFilter{
		Status: statusFilter,
		Page:   pg.Page,
		Limit:  pg.Limit,
	})
	if err != nil {
		return nil, err
	}

	statusLabel := StatusFilterAll
	if statusFilter != nil {
		statusLabel = string(*statusFilter)
	}

	return &ListResponse{
		Data: payments,
		Meta: ListMeta{
			Total:      total,
			Page:       pg.Page,
			Limit:      pg.Limit,
			TotalPages: pg.TotalPages(total),
			Status:     statusLabel,
		},
	}, nil
}

// ListUserPayments returns one user's payment history, restricted to
// that user and administrators.
func (s *Service) ListUserPayments(ctx context.Context, p Principal, userID uuid.UUID, query ListQuery) (*UserListResponse, error) {
	if !s.policy.CanRead(p, userID) {
		return nil, apperrors.Forbidden("you can only view your own payments")
	}

	statusFilter, err := ParseStatusFilter(query.Status)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	pg := pagination.Pagination{Page: query.Page, Limit: query.Limit}
	pg.Normalize()
	payments, total, err := s.repo.List(ctx, ListFilter{
		Status: statusFilter,
		UserID: &userID,
		Page:   pg.Page,
		Limit:  pg.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &UserListResponse{
		Payments: payments,
		Pagination: UserListPagination{
			Page:       pg.Page,
			Limit:      pg.Limit,
			Total:      total,
			TotalPages: pg.TotalPages(total),
		},
	}, nil
}

// Confirm transitions a payment to SUCCESS and grants the owner credits.
// Confirming an already-SUCCESS payment is a no-op returning the record
// unchanged, which makes at-least-once webhook delivery safe.
func (s *Service) Confirm(ctx context.Context, p Principal, id uuid.UUID) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanTransition(p, payment.UserID) {
		return nil, apperrors.Forbidden("you are not allowed to modify this payment")
	}

	if payment.Status == StatusSuccess {
		return payment, nil
	}
	if !payment.Status.CanTransitionTo(StatusSuccess) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot confirm a payment with status %s", payment.Status))
	}

	changed, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusSuccess)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost the race. Re-read to distinguish a concurrent confirm
		// (idempotent success) from a concurrent fail.
		payment, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if payment.Status == StatusSuccess {
			return payment, nil
		}
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot confirm a payment with status %s", payment.Status))
	}

	payment.Status = StatusSuccess
	s.metrics.PaymentTransitionsTotal.WithLabelValues(string(StatusPending), string(StatusSuccess)).Inc()

	// Credit grant is best-effort. Only the caller that actually flipped
	// the row gets here, so at-least-once webhook delivery cannot grant
	// credits twice.
	if err := s.credits.AddCredits(ctx, payment.UserID, payment.Amount); err != nil {
		s.metrics.CreditSyncTotal.WithLabelValues("error").Inc()
		s.logger.Error("failed to add credits after payment confirmation",
			zap.String("payment_id", id.String()),
			zap.String("user_id", payment.UserID.String()),
			zap.Float64("amount", payment.Amount),
			zap.Error(err))
	} else {
		s.metrics.CreditSyncTotal.WithLabelValues("success").Inc()
	}

	return payment, nil
}

// Fail transitions a PENDING payment to FAILED.
func (s *Service) Fail(ctx context.Context, p Principal, id uuid.UUID) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanTransition(p, payment.UserID) {
		return nil, apperrors.Forbidden("you are not allowed to modify this payment")
	}

	if !payment.Status.CanTransitionTo(StatusFailed) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot fail a payment with status %s", payment.Status))
	}

	changed, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusFailed)
	if err != nil {
		return nil, err
	}
	if !changed {
		payment, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot fail a payment with status %s", payment.Status))
	}

	payment.Status = StatusFailed
	s.metrics.PaymentTransitionsTotal.WithLabelValues(string(StatusPending), string(StatusFailed)).Inc()

	s.logger.Info("payment marked as failed", zap.String("payment_id", id.String()))
	return payment, nil
}

// Refund transitions a SUCCESS payment to REFUNDED.
func (s *Service) Refund(ctx context.Context, p Principal, id uuid.UUID) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanTransition(p, payment.UserID) {
		return nil, apperrors.Forbidden("you are not allowed to modify this payment")
	}

	if !payment.Status.CanTransitionTo(StatusRefunded) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Only payments with status SUCCESS can be refunded. Current status: %s", payment.Status))
	}

	changed, err := s.repo.UpdateStatus(ctx, id, StatusSuccess, StatusRefunded)
	if err != nil {
		return nil, err
	}
	if !changed {
		payment, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState(fmt.Sprintf("Only payments with status SUCCESS can be refunded. Current status: %s", payment.Status))
	}

	payment.Status = StatusRefunded
	s.metrics.PaymentTransitionsTotal.WithLabelValues(string(StatusSuccess), string(StatusRefunded)).Inc()

	s.logger.Info("payment refunded", zap.String("payment_id", id.String()))
	return payment, nil
}

