package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/lead/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, lead *domain.Lead) error {
	return db.WithContext(ctx).Create(lead).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lead, error) {
	return find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lead, error) {
	stmt := db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return find(stmt, id)
}

func find(stmt *gorm.DB, id snowflake.ID) (*domain.Lead, error) {
	var lead domain.Lead
	err := stmt.Where("id = ?", id).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Lead, error) {
	var items []domain.Lead
	stmt := db.WithContext(ctx).Model(&domain.Lead{})
	if filter.OwnerID != nil {
		stmt = stmt.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Unassigned {
		stmt = stmt.Where("owner_id IS NULL")
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.BeforeID > 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAging(ctx context.Context, db *gorm.DB, filter domain.AgingFilter) ([]domain.Lead, error) {
	var items []domain.Lead
	cutoff := filter.Cutoff.UTC()
	stmt := db.WithContext(ctx).Model(&domain.Lead{}).
		Where("owner_id IS NOT NULL").
		Where("status NOT IN ?", domain.ClosedStatuses()).
		Where("stale_since IS NULL").
		Where("(updated_at IS NOT NULL AND updated_at <= ?) OR (updated_at IS NULL AND created_at <= ?)", cutoff, cutoff).
		Where("id > ?", filter.AfterID).
		Order("id ASC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, lead *domain.Lead) error {
	return db.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", lead.ID).
		Updates(map[string]any{
			"status":         lead.Status,
			"notes":          lead.Notes,
			"owner_id":       lead.OwnerID,
			"last_nudged_at": lead.LastNudgedAt,
			"stale_since":    lead.StaleSince,
			"updated_at":     lead.UpdatedAt,
		}).Error
}

func (r *repo) MarkNudged(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", id).
		Update("last_nudged_at", at).Error
}

// MarkStale sets stale_since once. It reports whether this call set it.
func (r *repo) MarkStale(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ? AND stale_since IS NULL", id).
		Update("stale_since", at)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindOwner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Owner, error) {
	var user authdomain.User
	err := db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Owner{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		PushToken: user.PushToken,
	}, nil
}
