package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/commission/domain"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Create(entry).Error
}

// LockRep takes a row lock on the rep's user. sqlite serializes writers on its
// own and has no FOR UPDATE.
func (r *repo) LockRep(ctx context.Context, db *gorm.DB, repID int64) error {
	if db.Dialector.Name() == "sqlite" {
		return nil
	}
	var ids []int64
	return db.WithContext(ctx).Model(&authdomain.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", repID).
		Pluck("id", &ids).Error
}

func (r *repo) PeriodClosed(ctx context.Context, db *gorm.DB, periodStart time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&payrolldomain.Batch{}).
		Where("period_start = ?", periodStart.UTC()).
		Count(&count).Error
	return count > 0, err
}

// CountNewSignups counts the rep's new (non-renewal) sales with sold_at in
// [from, to].
func (r *repo) CountNewSignups(ctx context.Context, db *gorm.DB, repID int64, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Entry{}).
		Where("rep_id = ? AND is_renewal = ? AND sold_at >= ? AND sold_at <= ?", repID, false, from.UTC(), to.UTC()).
		Count(&count).Error
	return count, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListEntriesRequest) ([]domain.Entry, error) {
	var items []domain.Entry
	stmt := db.WithContext(ctx).Model(&domain.Entry{})
	if filter.RepID != nil {
		stmt = stmt.Where("rep_id = ?", *filter.RepID)
	}
	if filter.PeriodStart != nil {
		stmt = stmt.Where("period_start = ?", filter.PeriodStart.UTC())
	}
	if filter.From != nil {
		stmt = stmt.Where("sold_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("sold_at < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("sold_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByPeriod(ctx context.Context, db *gorm.DB, periodStart time.Time) ([]domain.Entry, error) {
	var items []domain.Entry
	err := db.WithContext(ctx).
		Where("period_start = ?", periodStart.UTC()).
		Order("rep_id ASC, sold_at ASC, id ASC").
		Find(&items).Error
	return items, err
}
