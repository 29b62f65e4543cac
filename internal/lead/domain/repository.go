package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	OwnerID    *int64
	Unassigned bool
	Status     Status
	BeforeID   int64
	Limit      int
}

// AgingFilter selects open, owned leads last touched at or before Cutoff that
// have not been marked stale yet.
type AgingFilter struct {
	Cutoff  time.Time
	AfterID int64
	Limit   int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, lead *Lead) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lead, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lead, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Lead, error)
	ListAging(ctx context.Context, db *gorm.DB, filter AgingFilter) ([]Lead, error)
	Update(ctx context.Context, db *gorm.DB, lead *Lead) error
	MarkNudged(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkStale(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	FindOwner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Owner, error)
}
