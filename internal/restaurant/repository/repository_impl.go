package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tastelanc/backoffice/internal/restaurant/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, restaurant *domain.Restaurant) error {
	return db.WithContext(ctx).Create(restaurant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Restaurant, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Restaurant, error) {
	stmt := db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Restaurant, error) {
	var item domain.Restaurant
	err := stmt.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Restaurant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Restaurant, error) {
	var items []domain.Restaurant
	stmt := db.WithContext(ctx).Model(&domain.Restaurant{})
	if filter.Tier != "" {
		stmt = stmt.Where("tier = ?", filter.Tier)
	}
	if filter.Name != "" {
		stmt = stmt.Where("lower(name) LIKE lower(?)", "%"+filter.Name+"%")
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

func (r *repo) UpdateTier(ctx context.Context, db *gorm.DB, restaurant *domain.Restaurant) error {
	return db.WithContext(ctx).Model(&domain.Restaurant{}).
		Where("id = ?", restaurant.ID).
		Updates(map[string]any{
			"tier":            restaurant.Tier,
			"tier_expires_at": restaurant.TierExpiresAt,
			"updated_at":      restaurant.UpdatedAt,
		}).Error
}

func (r *repo) CreateTierChange(ctx context.Context, db *gorm.DB, change *domain.TierChange) error {
	return db.WithContext(ctx).Create(change).Error
}

func (r *repo) ListTierChanges(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) ([]domain.TierChange, error) {
	var items []domain.TierChange
	err := db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, err
}
