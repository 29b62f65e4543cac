package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Access(ctx context.Context, restaurantID string) (*Access, error)
	Check(ctx context.Context, restaurantID string, feature Feature) (*Access, error)
}

// Access is what a restaurant may use right now.
type Access struct {
	RestaurantID string     `json:"restaurant_id"`
	Tier         Tier       `json:"tier"`
	StoredTier   Tier       `json:"stored_tier"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Features     []string   `json:"features"`

	set FeatureSet
}

// NewAccess builds the access view for an effective tier.
func NewAccess(restaurantID string, effective, stored Tier, expiresAt *time.Time) *Access {
	set := FeaturesFor(effective)
	return &Access{
		RestaurantID: restaurantID,
		Tier:         effective,
		StoredTier:   stored,
		ExpiresAt:    expiresAt,
		Features:     set.Strings(),
		set:          set,
	}
}

func (a *Access) Has(f Feature) bool {
	return a != nil && a.set.Has(f)
}

var (
	ErrFeatureNotAvailable = errors.New("feature_not_available")
	ErrUnknownFeature      = errors.New("invalid_feature")
)
