package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/payroll/domain"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateBatch(ctx context.Context, db *gorm.DB, batch *domain.Batch, lines []domain.Line) error {
	if err := db.WithContext(ctx).Create(batch).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindBatchByPeriod(ctx context.Context, db *gorm.DB, periodStart time.Time) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).Where("period_start = ?", periodStart.UTC()).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repo) FindBatchByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repo) ListBatches(ctx context.Context, db *gorm.DB, limit int) ([]domain.Batch, error) {
	var items []domain.Batch
	err := db.WithContext(ctx).Order("period_start DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]domain.Line, error) {
	var items []domain.Line
	err := db.WithContext(ctx).Where("batch_id = ?", batchID).Order("rep_id ASC").Find(&items).Error
	return items, err
}

func (r *repo) MarkStatementsSent(ctx context.Context, db *gorm.DB, batchID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Batch{}).
		Where("id = ? AND statements_sent_at IS NULL", batchID).
		Update("statements_sent_at", at)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) FindReps(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Rep, error) {
	out := make(map[snowflake.ID]domain.Rep, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []authdomain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = domain.Rep{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return out, nil
}

func (r *repo) RestaurantNames(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]string, error) {
	out := make(map[snowflake.ID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []restaurantdomain.Restaurant
	if err := db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item.Name
	}
	return out, nil
}
