package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	"github.com/tastelanc/backoffice/internal/observability/metrics"
	"github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

const maxSlugAttempts = 50

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      domain.Repository
	Publisher events.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("restaurant.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	tier := tierdomain.TierBasic
	if strings.TrimSpace(req.Tier) != "" {
		parsed, ok := tierdomain.ParseTier(req.Tier)
		if !ok {
			return nil, tierdomain.ErrInvalidTier
		}
		tier = parsed
	}

	restaurantSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := &domain.Restaurant{
		ID:         s.genID.Generate(),
		Name:       name,
		Slug:       restaurantSlug,
		Tier:       tier,
		OwnerEmail: optionalString(strings.ToLower(req.OwnerEmail)),
		Phone:      optionalString(req.Phone),
		Website:    optionalString(req.Website),
		Address:    optionalString(req.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, s.db, item); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("restaurant created",
		zap.String("restaurant_id", item.ID.String()),
		zap.String("slug", item.Slug),
	)
	resp := toResponse(item)
	return &resp, nil
}

// uniqueSlug appends -2, -3, ... until the slug is free.
func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, s.db, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	restaurantID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, s.db, restaurantID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Name:  strings.TrimSpace(req.Name),
		Limit: req.Limit() + 1,
	}
	if strings.TrimSpace(req.Tier) != "" {
		tier, ok := tierdomain.ParseTier(req.Tier)
		if !ok {
			return nil, tierdomain.ErrInvalidTier
		}
		filter.Tier = tier
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		filter.BeforeID = cursor.ID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	items, pageInfo := pagination.Page(items, req.Limit(), func(r domain.Restaurant) int64 { return r.ID.Int64() })

	data := make([]domain.Response, 0, len(items))
	for i := range items {
		data = append(data, toResponse(&items[i]))
	}
	return &domain.ListResponse{Data: data, PageInfo: pageInfo}, nil
}

func (s *Service) ChangeTier(ctx context.Context, req domain.ChangeTierRequest) (*domain.Response, error) {
	restaurantID, err := parseID(req.RestaurantID)
	if err != nil {
		return nil, err
	}
	tier, ok := tierdomain.ParseTier(req.Tier)
	if !ok {
		return nil, tierdomain.ErrInvalidTier
	}
	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.SourceAdmin
	}

	var (
		updated *domain.Restaurant
		from    tierdomain.Tier
		changed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(ctx, tx, restaurantID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		from = item.EffectiveTier(now)
		changed = from != tier

		item.Tier = tier
		item.TierExpiresAt = req.ExpiresAt
		if tier == tierdomain.TierBasic {
			item.TierExpiresAt = nil
		}
		item.UpdatedAt = now
		if err := s.repo.UpdateTier(ctx, tx, item); err != nil {
			return err
		}
		updated = item
		if !changed {
			return nil
		}
		return s.repo.CreateTierChange(ctx, tx, &domain.TierChange{
			ID:           s.genID.Generate(),
			RestaurantID: item.ID,
			FromTier:     string(from),
			ToTier:       string(tier),
			Source:       source,
			ActorID:      optionalString(req.ActorID),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.RecordTierChange(ctx, string(from), string(tier), source)
		s.publish(ctx, events.New(events.TypeTierChanged, updated.ID.String(), now, domain.TierChangedPayload{
			RestaurantID: updated.ID.String(),
			FromTier:     string(from),
			ToTier:       string(tier),
			Source:       source,
			ExpiresAt:    updated.TierExpiresAt,
		}))
		logger.WithContext(ctx, s.log).Info("restaurant tier changed",
			zap.String("restaurant_id", updated.ID.String()),
			zap.String("from_tier", string(from)),
			zap.String("to_tier", string(tier)),
			zap.String("source", source),
		)
	}

	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) ListTierChanges(ctx context.Context, id string) ([]domain.TierChangeResponse, error) {
	restaurantID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListTierChanges(ctx, s.db, restaurantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TierChangeResponse, 0, len(items))
	for _, c := range items {
		out = append(out, domain.TierChangeResponse{
			ID:        c.ID.String(),
			FromTier:  c.FromTier,
			ToTier:    c.ToTier,
			Source:    c.Source,
			ActorID:   c.ActorID,
			CreatedAt: c.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.WithContext(ctx, s.log).Warn("publish event failed",
			zap.String("event_type", evt.Type),
			zap.String("event_id", evt.ID),
			zap.Error(err),
		)
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func toResponse(r *domain.Restaurant) domain.Response {
	return domain.Response{
		ID:            r.ID.String(),
		Name:          r.Name,
		Slug:          r.Slug,
		Tier:          string(r.Tier),
		TierExpiresAt: r.TierExpiresAt,
		OwnerEmail:    r.OwnerEmail,
		Phone:         r.Phone,
		Website:       r.Website,
		Address:       r.Address,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
