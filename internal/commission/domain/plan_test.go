package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutTierBoundary(t *testing.T) {
	table := DefaultPlanTable()

	for signups := 0; signups < BonusThreshold; signups++ {
		assert.Equal(t, int64(38), table.Payout("Premium", 3, false, signups), "signups=%d", signups)
	}
	for _, signups := range []int{7, 8, 15, 100} {
		assert.Equal(t, int64(50), table.Payout("Premium", 3, false, signups), "signups=%d", signups)
	}
}

func TestPayoutKnownScenarios(t *testing.T) {
	table := DefaultPlanTable()

	assert.Equal(t, int64(38), table.Payout("Premium", 3, false, 5))
	assert.Equal(t, int64(110), table.Payout("Elite", 12, true, 10))
	assert.Equal(t, int64(83), table.Payout("Elite", 12, true, 2))
	assert.Equal(t, int64(220), table.Payout("Elite", 12, false, 7))
}

func TestPayoutPlanNameIsCaseInsensitive(t *testing.T) {
	table := DefaultPlanTable()

	assert.Equal(t, int64(68), table.Payout("premium", 6, false, 1))
	assert.Equal(t, int64(68), table.Payout("  PREMIUM ", 6, false, 1))
}

func TestPayoutUnknownPlanOrLengthIsZero(t *testing.T) {
	table := DefaultPlanTable()

	assert.Zero(t, table.Payout("Platinum", 3, false, 1))
	assert.Zero(t, table.Payout("Premium", 9, false, 1))
	assert.Zero(t, table.Payout("", 3, false, 1))
	assert.Zero(t, PlanTable{}.Payout("Premium", 3, false, 1))

	_, ok := table.Lookup("Premium", 9)
	assert.False(t, ok)
}

func TestPayoutIsIdempotent(t *testing.T) {
	table := DefaultPlanTable()
	first := table.Payout("Elite", 6, true, 9)
	second := table.Payout("Elite", 6, true, 9)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(60), first)
}

func TestRenewalFieldsSelected(t *testing.T) {
	opt, ok := DefaultPlanTable().Lookup("Premium", 12)
	require.True(t, ok)

	assert.Equal(t, int64(120), opt.PayoutFor(StandardTier, false))
	assert.Equal(t, int64(160), opt.PayoutFor(BonusTier, false))
	assert.Equal(t, int64(60), opt.PayoutFor(StandardTier, true))
	assert.Equal(t, int64(80), opt.PayoutFor(BonusTier, true))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, "standard", TierFor(0).Label)
	assert.Equal(t, "standard", TierFor(6).Label)
	assert.Equal(t, "bonus", TierFor(7).Label)
	assert.InDelta(t, 0.15, TierFor(1).Rate, 1e-9)
	assert.InDelta(t, 0.20, TierFor(7).Rate, 1e-9)

	tiers := Tiers()
	require.Len(t, tiers, 2)
	require.NotNil(t, tiers[0].MaxSignups)
	assert.Zero(t, tiers[0].MinSignups, "a rep with no signups yet is on the standard tier")
	assert.Equal(t, tiers[1].MinSignups, *tiers[0].MaxSignups+1, "tiers must be contiguous")
	assert.Nil(t, tiers[1].MaxSignups)
}

func TestDefaultPlanTableIsValid(t *testing.T) {
	require.NoError(t, DefaultPlanTable().Validate())
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	cases := map[string]struct {
		table PlanTable
		want  error
	}{
		"empty": {PlanTable{}, ErrEmptyPlanTable},
		"duplicate plan": {PlanTable{Plans: []Plan{
			{Name: "Premium", Options: []PricingOption{{Cost: 1, LengthMonths: 3, PayoutStandard: 2, PayoutBonus: 2, RenewalPayoutStandard: 1, RenewalPayoutBonus: 1}}},
			{Name: "premium", Options: []PricingOption{{Cost: 1, LengthMonths: 3, PayoutStandard: 2, PayoutBonus: 2, RenewalPayoutStandard: 1, RenewalPayoutBonus: 1}}},
		}}, ErrDuplicatePlan},
		"duplicate length": {PlanTable{Plans: []Plan{
			{Name: "Premium", Options: []PricingOption{
				{Cost: 1, LengthMonths: 3, PayoutStandard: 2, PayoutBonus: 2, RenewalPayoutStandard: 1, RenewalPayoutBonus: 1},
				{Cost: 1, LengthMonths: 3, PayoutStandard: 2, PayoutBonus: 2, RenewalPayoutStandard: 1, RenewalPayoutBonus: 1},
			}},
		}}, ErrDuplicateLength},
		"renewal drift": {PlanTable{Plans: []Plan{
			{Name: "Premium", Options: []PricingOption{{Cost: 250, LengthMonths: 3, PayoutStandard: 38, PayoutBonus: 50, RenewalPayoutStandard: 20, RenewalPayoutBonus: 25}}},
		}}, ErrInconsistentPayout},
		"zero cost": {PlanTable{Plans: []Plan{
			{Name: "Premium", Options: []PricingOption{{Cost: 0, LengthMonths: 3}}},
		}}, ErrInvalidPricing},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tc.table.Validate(), tc.want)
		})
	}
}
