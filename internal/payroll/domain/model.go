package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Batch is a closed pay period. One batch exists per period start.
type Batch struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	PeriodStart      time.Time    `gorm:"column:period_start;not null;uniqueIndex:ux_payroll_batches_period"`
	PeriodEnd        time.Time    `gorm:"column:period_end;not null"`
	PayDate          time.Time    `gorm:"column:pay_date;not null"`
	EntryCount       int          `gorm:"column:entry_count;not null"`
	TotalAmount      int64        `gorm:"column:total_amount;not null"`
	ClosedAt         time.Time    `gorm:"column:closed_at;not null"`
	StatementsSentAt *time.Time   `gorm:"column:statements_sent_at"`
}

func (Batch) TableName() string { return "payroll_batches" }

// Line is one rep's total within a batch.
type Line struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	BatchID  snowflake.ID `gorm:"column:batch_id;not null;uniqueIndex:ux_payroll_lines_batch_rep,priority:1"`
	RepID    snowflake.ID `gorm:"column:rep_id;not null;uniqueIndex:ux_payroll_lines_batch_rep,priority:2"`
	NewSales int          `gorm:"column:new_sales;not null"`
	Renewals int          `gorm:"column:renewals;not null"`
	Amount   int64        `gorm:"column:amount;not null"`
}

func (Line) TableName() string { return "payroll_lines" }

// Rep is the statement recipient.
type Rep struct {
	ID    snowflake.ID
	Name  string
	Email string
}
