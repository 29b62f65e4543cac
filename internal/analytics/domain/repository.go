package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Window is a half-open [From, To) range of occurred_at.
type Window struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	CreatePageView(ctx context.Context, db *gorm.DB, view *PageView) error
	CreateClick(ctx context.Context, db *gorm.DB, click *Click) error
	CreateImpressions(ctx context.Context, db *gorm.DB, items []SectionImpression) error

	CountPageViews(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w Window) (int64, error)
	CountUniqueVisitors(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w Window) (int64, error)
	CountClicksByType(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w Window) (map[ClickType]int64, error)
	SectionStats(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w Window) ([]SectionStat, error)
}
