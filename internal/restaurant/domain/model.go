package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

type Restaurant struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	Name          string          `gorm:"type:text;not null"`
	Slug          string          `gorm:"type:text;not null;uniqueIndex:ux_restaurants_slug"`
	Tier          tierdomain.Tier `gorm:"type:text;not null;default:basic"`
	TierExpiresAt *time.Time      `gorm:"column:tier_expires_at"`
	OwnerEmail    *string         `gorm:"column:owner_email;type:text"`
	Phone         *string         `gorm:"type:text"`
	Website       *string         `gorm:"type:text"`
	Address       *string         `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (Restaurant) TableName() string { return "restaurants" }

// EffectiveTier is the tier in force at now. An expired paid tier falls back
// to basic.
func (r Restaurant) EffectiveTier(now time.Time) tierdomain.Tier {
	if r.TierExpiresAt != nil && !now.Before(*r.TierExpiresAt) {
		return tierdomain.TierBasic
	}
	return r.Tier
}

// TierChange is the audit trail of tier moves.
type TierChange struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	RestaurantID snowflake.ID `gorm:"column:restaurant_id;not null;index:ix_tier_changes_restaurant"`
	FromTier     string       `gorm:"column:from_tier;type:text;not null"`
	ToTier       string       `gorm:"column:to_tier;type:text;not null"`
	Source       string       `gorm:"type:text;not null"`
	ActorID      *string      `gorm:"column:actor_id;type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (TierChange) TableName() string { return "tier_changes" }

const (
	SourceAdmin    = "admin"
	SourceCheckout = "checkout"
)
