// Package provider abstracts the external card-processing provider.
package provider

import "context"

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	// Metadata is echoed back verbatim in webhook events. The lifecycle
	// engine relies on it to route events to payment records.
	Metadata map[string]string
}

// CheckoutSession is a hosted payment page created by the provider.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentIntent is a provider-side in-progress charge.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor units
	Currency     string
	Status       string
}

// Provider defines the interface for the payment provider.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// CreateCheckoutSession creates a hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// CreatePaymentIntent creates a payment intent. Amount is in minor
	// units.
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)

	// VerifyWebhookSignature verifies a webhook payload signature. The
	// payload must be the raw request bytes; any re-serialization breaks
	// the signature.
	VerifyWebhookSignature(payload []byte, signature string) error
}
