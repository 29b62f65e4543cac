package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/billing/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, session *domain.CheckoutSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByProviderID(ctx context.Context, db *gorm.DB, providerSessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	err := db.WithContext(ctx).Where("provider_session_id = ?", providerSessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, providerSessionID string, status domain.SessionStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": status}
	if status == domain.StatusCompleted {
		updates["completed_at"] = at
	}
	res := db.WithContext(ctx).Model(&domain.CheckoutSession{}).
		Where("provider_session_id = ? AND status = ?", providerSessionID, domain.StatusOpen).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) Reopen(ctx context.Context, db *gorm.DB, providerSessionID string) error {
	return db.WithContext(ctx).Model(&domain.CheckoutSession{}).
		Where("provider_session_id = ?", providerSessionID).
		Updates(map[string]any{"status": domain.StatusOpen, "completed_at": nil}).Error
}
