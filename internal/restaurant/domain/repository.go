package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

type ListFilter struct {
	Tier     tierdomain.Tier
	Name     string
	BeforeID int64
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, r *Restaurant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Restaurant, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Restaurant, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Restaurant, error)
	UpdateTier(ctx context.Context, db *gorm.DB, r *Restaurant) error
	CreateTierChange(ctx context.Context, db *gorm.DB, change *TierChange) error
	ListTierChanges(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) ([]TierChange, error)
}
