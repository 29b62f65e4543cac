package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry is one row of the commission ledger.
type Entry struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	RepID           snowflake.ID `gorm:"column:rep_id;not null;index:ix_commission_entries_rep_sold,priority:1"`
	RestaurantID    snowflake.ID `gorm:"column:restaurant_id;not null"`
	PlanName        string       `gorm:"column:plan_name;type:text;not null"`
	LengthMonths    int          `gorm:"column:length_months;not null"`
	IsRenewal       bool         `gorm:"column:is_renewal;not null"`
	SignupsInWindow int          `gorm:"column:signups_in_window;not null"`
	TierLabel       string       `gorm:"column:tier_label;type:text;not null"`
	Amount          int64        `gorm:"column:amount;not null"`
	SoldAt          time.Time    `gorm:"column:sold_at;not null;index:ix_commission_entries_rep_sold,priority:2"`
	PeriodStart     time.Time    `gorm:"column:period_start;not null;index"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string { return "commission_entries" }
