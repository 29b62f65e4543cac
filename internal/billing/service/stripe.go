package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tastelanc/backoffice/internal/billing/domain"
	"github.com/tastelanc/backoffice/internal/config"
)

// StripeGateway opens one-off payment checkouts for tier upgrades.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
	successURL    string
	cancelURL     string
}

// NewGateway returns nil when no secret key is configured.
func NewGateway(cfg config.Config) domain.Gateway {
	key := strings.TrimSpace(cfg.Stripe.SecretKey)
	if key == "" {
		return nil
	}
	successURL := cfg.Stripe.SuccessURL
	if successURL == "" {
		successURL = cfg.PublicBaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := cfg.Stripe.CancelURL
	if cancelURL == "" {
		cancelURL = cfg.PublicBaseURL + "/billing/cancel"
	}
	return &StripeGateway{
		api:           client.New(key, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
		tolerance:     cfg.Stripe.WebhookTolerance,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, p domain.SessionParams) (*domain.ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(p.ReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
				},
			},
		},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &domain.ProviderSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, domain.ErrNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return nil, domain.ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithTolerance(payload, signature, g.webhookSecret, g.tolerance)
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}
	return decodeEvent(evt)
}

func decodeEvent(evt stripe.Event) (*domain.WebhookEvent, error) {
	out := &domain.WebhookEvent{
		ID:         evt.ID,
		Type:       string(evt.Type),
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
	}
	switch out.Type {
	case domain.EventCheckoutCompleted, domain.EventCheckoutExpired:
		if evt.Data == nil {
			return nil, domain.ErrInvalidWebhookEvent
		}
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return nil, domain.ErrInvalidWebhookEvent
		}
		out.SessionID = session.ID
		out.Metadata = session.Metadata
		out.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	}
	return out, nil
}
