package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/creditlab/payment-service/internal/utils/errors"
	"github.com/creditlab/payment-service/internal/utils/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows a payment list query. Nil fields match everything.
type ListFilter struct {
	Status *Status
	UserID *uuid.UUID
	Page   int
	Limit  int
}

// Repository defines the interface for payment data access.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// UpdateStatus transitions a payment from one status to another. It
	// reports whether a row actually changed, so concurrent callers can
	// tell who won the race without locking.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	SetTransactionID(ctx context.Context, id uuid.UUID, transactionID string) error
	List(ctx context.Context, filter ListFilter) ([]*Payment, int64, error)

	CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error
	// GetWebhookEvent returns the stored event for eventID, or nil when
	// the event has not been seen before.
	GetWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error)
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	// Compare-and-set keyed on the expected prior status. Two concurrent
	// confirms cannot both see RowsAffected == 1.
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update payment status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetTransactionID(ctx context.Context, id uuid.UUID, transactionID string) error {
	err := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transaction_id": transactionID,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("set transaction id: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Payment, int64, error) {
	pg := pagination.Pagination{Page: filter.Page, Limit: filter.Limit}
	pg.Normalize()

	query := r.db.WithContext(ctx).Model(&Payment{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	// Count and fetch share the same filtered query so the total always
	// reflects the returned page's filter.
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	var payments []*Payment
	err := query.
		Order("created_at DESC").
		Offset(pg.Offset()).
		Limit(pg.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	return payments, total, nil
}

// --- Webhook Event Operations ---

func (r *repository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (r *repository) GetWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error) {
	var event WebhookEvent
	err := r.db.WithContext(ctx).First(&event, "event_id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return &event, nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	// A nil error clears any failure left by an earlier attempt, so a
	// successful retry reads as cleanly processed.
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": time.Now(),
		"error":        nil,
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	err := r.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
