package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/analytics/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreatePageView(ctx context.Context, db *gorm.DB, view *domain.PageView) error {
	return db.WithContext(ctx).Create(view).Error
}

func (r *repo) CreateClick(ctx context.Context, db *gorm.DB, click *domain.Click) error {
	return db.WithContext(ctx).Create(click).Error
}

func (r *repo) CreateImpressions(ctx context.Context, db *gorm.DB, items []domain.SectionImpression) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func scoped(db *gorm.DB, model any, restaurantID snowflake.ID, w domain.Window) *gorm.DB {
	return db.Model(model).
		Where("restaurant_id = ? AND occurred_at >= ? AND occurred_at < ?", restaurantID, w.From.UTC(), w.To.UTC())
}

func (r *repo) CountPageViews(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w domain.Window) (int64, error) {
	var count int64
	err := scoped(db.WithContext(ctx), &domain.PageView{}, restaurantID, w).Count(&count).Error
	return count, err
}

func (r *repo) CountUniqueVisitors(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w domain.Window) (int64, error) {
	var count int64
	err := scoped(db.WithContext(ctx), &domain.PageView{}, restaurantID, w).
		Distinct("visitor_id").
		Count(&count).Error
	return count, err
}

func (r *repo) CountClicksByType(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w domain.Window) (map[domain.ClickType]int64, error) {
	var rows []struct {
		ClickType domain.ClickType
		Total     int64
	}
	err := scoped(db.WithContext(ctx), &domain.Click{}, restaurantID, w).
		Select("click_type, COUNT(*) AS total").
		Group("click_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ClickType]int64, len(rows))
	for _, row := range rows {
		out[row.ClickType] = row.Total
	}
	return out, nil
}

func (r *repo) SectionStats(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, w domain.Window) ([]domain.SectionStat, error) {
	var out []domain.SectionStat
	err := scoped(db.WithContext(ctx), &domain.SectionImpression{}, restaurantID, w).
		Select("section_name, COUNT(*) AS impressions, AVG(position) AS avg_position").
		Group("section_name").
		Order("impressions DESC, section_name ASC").
		Scan(&out).Error
	return out, err
}
