package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, session *CheckoutSession) error
	FindByProviderID(ctx context.Context, db *gorm.DB, providerSessionID string) (*CheckoutSession, error)
	// Transition moves an open session to status and reports whether it did.
	Transition(ctx context.Context, db *gorm.DB, providerSessionID string, status SessionStatus, at time.Time) (bool, error)
	Reopen(ctx context.Context, db *gorm.DB, providerSessionID string) error
}
