// Package credit calls the account-balance service to add credits to a
// user after a successful payment.
package credit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creditlab/payment-service/internal/utils/requestctx"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// TokenSource mints service-to-service tokens for calls that are not
// driven by an authenticated request (webhook-triggered confirms).
type TokenSource interface {
	GenerateServiceToken() (string, error)
}

// Config holds credit client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is an HTTP client for the credit service. Outbound calls run
// through a circuit breaker so a degraded credit service cannot pile up
// blocked confirm transitions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient creates a new credit client.
func NewClient(cfg *Config, tokens TokenSource, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "credit-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		tokens:     tokens,
		logger:     logger,
	}
}

type addCreditsRequest struct {
	Amount float64 `json:"amount"`
}

// AddCredits adds amount credits to the user's balance. The caller's
// bearer token is forwarded when present in ctx; otherwise a fresh
// service token is minted.
func (c *Client) AddCredits(ctx context.Context, userID uuid.UUID, amount float64) error {
	token := requestctx.BearerToken(ctx)
	if token == "" {
		minted, err := c.tokens.GenerateServiceToken()
		if err != nil {
			return fmt.Errorf("mint service token: %w", err)
		}
		token = minted
	}

	body, err := json.Marshal(addCreditsRequest{Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/credit/user/%s/add", c.baseURL, userID)

	_, err = c.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("call credit service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, fmt.Errorf("credit service returned %d: %s", resp.StatusCode, respBody)
		}

		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("credits added",
		zap.String("user_id", userID.String()),
		zap.Float64("amount", amount),
	)
	return nil
}
