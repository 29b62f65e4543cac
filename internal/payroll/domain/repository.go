package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBatch(ctx context.Context, db *gorm.DB, batch *Batch, lines []Line) error
	FindBatchByPeriod(ctx context.Context, db *gorm.DB, periodStart time.Time) (*Batch, error)
	FindBatchByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Batch, error)
	ListBatches(ctx context.Context, db *gorm.DB, limit int) ([]Batch, error)
	ListLines(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]Line, error)
	MarkStatementsSent(ctx context.Context, db *gorm.DB, batchID snowflake.ID, at time.Time) (bool, error)
	FindReps(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Rep, error)
	RestaurantNames(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]string, error)
}
