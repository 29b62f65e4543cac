package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		days        int
		nudge, stale bool
	}{
		{0, false, false},
		{6, false, false},
		{7, true, false},
		{13, true, false},
		{14, true, true},
		{30, true, true},
	}
	for _, tc := range cases {
		c := Classify(Aging{CreatedAt: daysAgo(tc.days)}, now)
		assert.Equal(t, tc.days, c.DaysSinceUpdate)
		assert.Equal(t, tc.nudge, c.IsNudge, "days=%d", tc.days)
		assert.Equal(t, tc.stale, c.IsStale, "days=%d", tc.days)
	}
}

func TestClassifyExactSecondBoundaries(t *testing.T) {
	seven := now.Add(-7 * 86400 * time.Second)
	fourteen := now.Add(-14 * 86400 * time.Second)

	assert.True(t, Classify(Aging{CreatedAt: seven}, now).IsNudge)
	assert.False(t, Classify(Aging{CreatedAt: seven.Add(time.Second)}, now).IsNudge)
	assert.True(t, Classify(Aging{CreatedAt: fourteen}, now).IsStale)
	assert.False(t, Classify(Aging{CreatedAt: fourteen.Add(time.Second)}, now).IsStale)
}

func TestClassifyPrefersUpdatedAt(t *testing.T) {
	updated := daysAgo(2)
	c := Classify(Aging{CreatedAt: daysAgo(40), UpdatedAt: &updated}, now)

	assert.Equal(t, 2, c.DaysSinceUpdate)
	assert.False(t, c.IsNudge)

	zero := time.Time{}
	c = Classify(Aging{CreatedAt: daysAgo(8), UpdatedAt: &zero}, now)
	assert.Equal(t, 8, c.DaysSinceUpdate)
}

func TestClassifyFutureReferenceClampsToZero(t *testing.T) {
	future := now.Add(90 * time.Minute)
	c := Classify(Aging{CreatedAt: daysAgo(20), UpdatedAt: &future}, now)

	assert.Equal(t, 0, c.DaysSinceUpdate)
	assert.False(t, c.IsNudge)
	assert.False(t, c.IsStale)
	assert.True(t, c.ClockSkew)
}

func TestStaleImpliesNudge(t *testing.T) {
	for d := 0; d < 60; d++ {
		c := Classify(Aging{CreatedAt: daysAgo(d).Add(-time.Hour)}, now)
		if c.IsStale {
			assert.True(t, c.IsNudge, "days=%d", d)
		}
		assert.Equal(t, c, Classify(Aging{CreatedAt: daysAgo(d).Add(-time.Hour)}, now))
	}
}
