package domain

import (
	"context"
	"errors"
)

type Service interface {
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

type CreateCheckoutRequest struct {
	RestaurantID string `json:"-"`
	Tier         string `json:"tier"`
	LengthMonths int    `json:"length_months"`
	ActorID      string `json:"-"`
}

type CheckoutResponse struct {
	ID                string `json:"id"`
	ProviderSessionID string `json:"provider_session_id"`
	URL               string `json:"url"`
	Tier              string `json:"tier"`
	LengthMonths      int    `json:"length_months"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Applied   bool   `json:"applied"`
}

var (
	ErrNotConfigured       = errors.New("billing_not_configured")
	ErrInvalidTier         = errors.New("invalid_checkout_tier")
	ErrInvalidLength       = errors.New("invalid_length_months")
	ErrInvalidSignature    = errors.New("invalid_webhook_signature")
	ErrInvalidWebhookEvent = errors.New("invalid_webhook_event")
	ErrSessionNotFound     = errors.New("checkout_session_not_found")
)
