package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, entry *Entry) error
	// LockRep serializes sales recorded for one rep inside db's transaction.
	LockRep(ctx context.Context, db *gorm.DB, repID int64) error
	// PeriodClosed reports whether a payroll batch exists for the period.
	PeriodClosed(ctx context.Context, db *gorm.DB, periodStart time.Time) (bool, error)
	CountNewSignups(ctx context.Context, db *gorm.DB, repID int64, from, to time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListEntriesRequest) ([]Entry, error)
	ListByPeriod(ctx context.Context, db *gorm.DB, periodStart time.Time) ([]Entry, error)
}
