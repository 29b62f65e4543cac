package domain

import "time"

const (
	// NudgeAfterDays is when the owning rep is reminded to follow up.
	NudgeAfterDays = 7
	// StaleAfterDays is when another rep may claim the lead.
	StaleAfterDays = 14
)

// Aging is the subset of a lead the aging policy looks at.
type Aging struct {
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Classification is the age bucket of a lead at a single instant.
type Classification struct {
	DaysSinceUpdate int  `json:"days_since_update"`
	IsNudge         bool `json:"is_nudge"`
	IsStale         bool `json:"is_stale"`
	// ClockSkew is set when the reference timestamp lies in the future of now.
	ClockSkew bool `json:"clock_skew,omitempty"`
}

// Reference is the timestamp the lead's age is measured from.
func (a Aging) Reference() time.Time {
	if a.UpdatedAt != nil && !a.UpdatedAt.IsZero() {
		return *a.UpdatedAt
	}
	return a.CreatedAt
}

// Classify buckets a lead by full days elapsed since its last update. Future
// references clamp to zero days.
func Classify(a Aging, now time.Time) Classification {
	elapsed := now.Sub(a.Reference())
	if elapsed < 0 {
		return Classification{ClockSkew: true}
	}
	days := int(elapsed / (24 * time.Hour))
	return Classification{
		DaysSinceUpdate: days,
		IsNudge:         days >= NudgeAfterDays,
		IsStale:         days >= StaleAfterDays,
	}
}
