package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type SessionStatus string

const (
	StatusOpen      SessionStatus = "open"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// CheckoutSession tracks a hosted payment page opened for a tier upgrade.
type CheckoutSession struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	RestaurantID      snowflake.ID      `gorm:"column:restaurant_id;not null"`
	ProviderSessionID string            `gorm:"column:provider_session_id;type:text;not null;uniqueIndex:ux_checkout_sessions_provider"`
	Tier              string            `gorm:"column:tier;type:text;not null"`
	LengthMonths      int               `gorm:"column:length_months;not null"`
	Amount            int64             `gorm:"column:amount;not null"`
	Currency          string            `gorm:"column:currency;type:text;not null"`
	Status            SessionStatus     `gorm:"column:status;type:text;not null"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt         time.Time         `gorm:"not null"`
	CompletedAt       *time.Time        `gorm:"column:completed_at"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }
