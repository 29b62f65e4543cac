package domain

import (
	"errors"
	"sort"
	"strings"
)

// Tier is a restaurant subscription level. The zero value is not a tier.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierElite   Tier = "elite"
)

// Feature is a capability unlocked by a tier.
type Feature string

const (
	FeatureHours       Feature = "hours"
	FeatureLocation    Feature = "location"
	FeaturePhotos      Feature = "photos"
	FeatureDescription Feature = "description"

	FeatureMenu              Feature = "menu"
	FeatureSpecials          Feature = "specials"
	FeatureHappyHours        Feature = "happy_hours"
	FeatureEvents            Feature = "events"
	FeatureAnalytics         Feature = "analytics"
	FeaturePushNotifications Feature = "push_notifications"

	FeatureMapLogo           Feature = "map_logo"
	FeatureAdvancedAnalytics Feature = "advanced_analytics"
	FeatureDailySpecials     Feature = "daily_specials"
	FeatureSocialContent     Feature = "social_content"
)

var ErrInvalidTier = errors.New("invalid_tier")

var ranks = map[Tier]int{
	TierBasic:   1,
	TierPremium: 2,
	TierElite:   3,
}

// features unlocked at each tier, not counting lower tiers.
var unlocks = map[Tier][]Feature{
	TierBasic: {FeatureHours, FeatureLocation, FeaturePhotos, FeatureDescription},
	TierPremium: {
		FeatureMenu, FeatureSpecials, FeatureHappyHours,
		FeatureEvents, FeatureAnalytics, FeaturePushNotifications,
	},
	TierElite: {FeatureMapLogo, FeatureAdvancedAnalytics, FeatureDailySpecials, FeatureSocialContent},
}

// Tiers lists every tier from lowest to highest.
func Tiers() []Tier {
	return []Tier{TierBasic, TierPremium, TierElite}
}

// ParseTier normalizes a stored or user-supplied tier name.
func ParseTier(raw string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := ranks[t]; !ok {
		return "", false
	}
	return t, true
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := ranks[t]
	return ok
}

func (t Tier) String() string { return string(t) }

// HasAccess reports whether a restaurant on current may use something gated
// at required. Unknown tiers on either side never grant access.
func HasAccess(current, required Tier) bool {
	have, ok := ranks[current]
	if !ok {
		return false
	}
	need, ok := ranks[required]
	if !ok {
		return false
	}
	return have >= need
}

// FeatureSet is an immutable set of features.
type FeatureSet struct {
	items map[Feature]struct{}
}

// Has reports whether f is in the set.
func (s FeatureSet) Has(f Feature) bool {
	_, ok := s.items[f]
	return ok
}

// Len is the number of features in the set.
func (s FeatureSet) Len() int { return len(s.items) }

// List returns the features sorted by name.
func (s FeatureSet) List() []Feature {
	out := make([]Feature, 0, len(s.items))
	for f := range s.items {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns List as plain strings.
func (s FeatureSet) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = string(f)
	}
	return out
}

// FeaturesFor returns everything tier unlocks, including what lower tiers
// unlock. An unknown or empty tier gets the basic set.
func FeaturesFor(tier Tier) FeatureSet {
	rank, ok := ranks[tier]
	if !ok {
		rank = ranks[TierBasic]
	}
	items := make(map[Feature]struct{})
	for _, t := range Tiers() {
		if ranks[t] > rank {
			break
		}
		for _, f := range unlocks[t] {
			items[f] = struct{}{}
		}
	}
	return FeatureSet{items: items}
}

// RequiredTierFor returns the lowest tier that unlocks f.
func RequiredTierFor(f Feature) (Tier, bool) {
	for _, t := range Tiers() {
		for _, candidate := range unlocks[t] {
			if candidate == f {
				return t, true
			}
		}
	}
	return "", false
}

// ParseFeature normalizes a feature name and reports whether any tier
// unlocks it.
func ParseFeature(raw string) (Feature, bool) {
	f := Feature(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := RequiredTierFor(f); !ok {
		return "", false
	}
	return f, true
}
