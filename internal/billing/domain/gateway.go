package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks

// Gateway is the hosted checkout provider.
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (*ProviderSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type SessionParams struct {
	ReferenceID    string
	ProductName    string
	UnitAmount     int64
	Currency       string
	CustomerEmail  string
	Metadata       map[string]string
	IdempotencyKey string
}

type ProviderSession struct {
	ID  string
	URL string
}

// WebhookEvent is the part of a provider event the back office acts on.
type WebhookEvent struct {
	ID         string
	Type       string
	SessionID  string
	Paid       bool
	Metadata   map[string]string
	OccurredAt time.Time
}

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)
