package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	"github.com/tastelanc/backoffice/internal/tier/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  restaurantdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  restaurantdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Access(ctx context.Context, restaurantID string) (*domain.Access, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(restaurantID))
	if err != nil || id == 0 {
		return nil, restaurantdomain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, restaurantdomain.ErrNotFound
	}
	return domain.NewAccess(item.ID.String(), item.EffectiveTier(s.clock.Now()), item.Tier, item.TierExpiresAt), nil
}

// Check returns ErrFeatureNotAvailable when the restaurant's tier does not
// include feature. The access view is returned either way.
func (s *Service) Check(ctx context.Context, restaurantID string, feature domain.Feature) (*domain.Access, error) {
	if _, ok := domain.RequiredTierFor(feature); !ok {
		return nil, domain.ErrUnknownFeature
	}
	access, err := s.Access(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !access.Has(feature) {
		return access, domain.ErrFeatureNotAvailable
	}
	return access, nil
}
