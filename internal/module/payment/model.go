package payment

import (
	"time"

	"github.com/google/uuid"
)

// Provider name for Stripe-backed payments created through the checkout
// flow. createPayment accepts any provider string; only Stripe-equivalent
// values get an external intent.
const ProviderStripe = "STRIPE"

// Payment represents a payment record. Amount, currency, provider and
// owner are immutable after creation; only status (and updated_at) change.
type Payment struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID   uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Amount   float64   `json:"amount" gorm:"not null"`
	Currency string    `json:"currency" gorm:"size:3;not null"`
	Provider string    `json:"provider" gorm:"not null"`
	Status   Status    `json:"status" gorm:"not null;default:PENDING;index"`
	// TransactionID holds the external provider reference (payment intent
	// or checkout session). Empty for manual/mock payments.
	TransactionID string    `json:"transactionId,omitempty" gorm:"index:idx_payments_transaction_id,unique,where:transaction_id <> ''"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// WebhookEvent represents a stored provider webhook event, kept for
// at-least-once delivery deduplication and auditing.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null"`
	Payload     string    `gorm:"type:jsonb"`
	Processed   bool      `gorm:"default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
