package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAccess(t *testing.T) {
	for _, tier := range Tiers() {
		assert.True(t, HasAccess(tier, tier), "reflexive for %s", tier)
	}

	assert.True(t, HasAccess(TierElite, TierPremium))
	assert.True(t, HasAccess(TierElite, TierBasic))
	assert.True(t, HasAccess(TierPremium, TierBasic))
	assert.False(t, HasAccess(TierBasic, TierPremium))
	assert.False(t, HasAccess(TierPremium, TierElite))

	assert.False(t, HasAccess("", TierPremium))
	assert.False(t, HasAccess("", TierBasic))
	assert.False(t, HasAccess("platinum", TierBasic))
	assert.False(t, HasAccess(TierElite, "platinum"))
}

func TestHasAccessMonotonic(t *testing.T) {
	tiers := Tiers()
	for i, lower := range tiers {
		for _, higher := range tiers[i:] {
			for _, required := range tiers {
				if HasAccess(lower, required) {
					assert.True(t, HasAccess(higher, required), "%s grants %s so %s must too", lower, required, higher)
				}
			}
		}
	}
}

func TestFeaturesFor(t *testing.T) {
	basic := FeaturesFor(TierBasic)
	premium := FeaturesFor(TierPremium)
	elite := FeaturesFor(TierElite)

	assert.Equal(t, 4, basic.Len())
	assert.Equal(t, 10, premium.Len())
	assert.Equal(t, 14, elite.Len())

	assert.False(t, basic.Has(FeatureMenu))
	assert.True(t, premium.Has(FeatureMenu))
	assert.False(t, premium.Has(FeatureAdvancedAnalytics))
	assert.True(t, elite.Has(FeatureMenu))
	assert.True(t, elite.Has(FeatureAdvancedAnalytics))

	assert.Equal(t, []string{"description", "hours", "location", "photos"}, basic.Strings())
}

func TestFeaturesForIsMonotonic(t *testing.T) {
	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		lower := FeaturesFor(tiers[i-1])
		higher := FeaturesFor(tiers[i])
		for _, f := range lower.List() {
			assert.True(t, higher.Has(f), "%s must include %s from %s", tiers[i], f, tiers[i-1])
		}
	}
}

func TestFeaturesForUnknownTierIsBasic(t *testing.T) {
	assert.Equal(t, FeaturesFor(TierBasic).List(), FeaturesFor("").List())
	assert.Equal(t, FeaturesFor(TierBasic).List(), FeaturesFor("gold").List())
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("  Premium ")
	require.True(t, ok)
	assert.Equal(t, TierPremium, tier)

	_, ok = ParseTier("")
	assert.False(t, ok)
	_, ok = ParseTier("free")
	assert.False(t, ok)
}

func TestRequiredTierFor(t *testing.T) {
	cases := map[Feature]Tier{
		FeatureHours:             TierBasic,
		FeatureHappyHours:        TierPremium,
		FeaturePushNotifications: TierPremium,
		FeatureSocialContent:     TierElite,
	}
	for feature, want := range cases {
		got, ok := RequiredTierFor(feature)
		require.True(t, ok, feature)
		assert.Equal(t, want, got, feature)
		assert.True(t, FeaturesFor(got).Has(feature))
	}

	_, ok := RequiredTierFor("teleport")
	assert.False(t, ok)
}

func TestFeatureAccessAgreesWithHasAccess(t *testing.T) {
	for _, current := range Tiers() {
		set := FeaturesFor(current)
		for _, f := range FeaturesFor(TierElite).List() {
			required, _ := RequiredTierFor(f)
			assert.Equal(t, HasAccess(current, required), set.Has(f), "tier=%s feature=%s", current, f)
		}
	}
}
