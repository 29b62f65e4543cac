package domain

import "time"

// TierResetWindow is how far back new signups count toward the bonus tier.
const TierResetWindow = 30 * 24 * time.Hour

// BonusThreshold is the number of new signups in the window that unlocks the
// bonus rate.
const BonusThreshold = 7

type CommissionTier struct {
	MinSignups int     `json:"min_signups"`
	MaxSignups *int    `json:"max_signups,omitempty"`
	Rate       float64 `json:"rate"`
	Label      string  `json:"label"`
}

var (
	standardMax = BonusThreshold - 1

	StandardTier = CommissionTier{MinSignups: 0, MaxSignups: &standardMax, Rate: 0.15, Label: "standard"}
	BonusTier    = CommissionTier{MinSignups: BonusThreshold, Rate: 0.20, Label: "bonus"}
)

// Tiers returns the fixed commission tiers in ascending order.
func Tiers() []CommissionTier {
	return []CommissionTier{StandardTier, BonusTier}
}

// TierFor resolves the commission tier for a signup count. Negative counts
// fall in the standard tier.
func TierFor(signupsInPeriod int) CommissionTier {
	if signupsInPeriod >= BonusThreshold {
		return BonusTier
	}
	return StandardTier
}

// WindowStart is the inclusive lower bound of the tier window ending at t.
func WindowStart(t time.Time) time.Time {
	return t.UTC().Add(-TierResetWindow)
}
