package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/billing/domain"
	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

const (
	metaCheckoutID   = "checkout_id"
	metaRestaurantID = "restaurant_id"
	metaTier         = "tier"
	metaLengthMonths = "length_months"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	Gateway     domain.Gateway `optional:"true"`
	Plans       *config.CommissionConfigHolder
	Restaurants restaurantdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	currency    string
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	gateway     domain.Gateway
	plans       *config.CommissionConfigHolder
	restaurants restaurantdomain.Service
}

func New(p Params) domain.Service {
	currency := strings.ToLower(strings.TrimSpace(p.Config.Stripe.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		currency:    currency,
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		gateway:     p.Gateway,
		plans:       p.Plans,
		restaurants: p.Restaurants,
	}
}

// CreateCheckout opens a hosted payment page for a paid tier. The price is
// the plan table cost for the tier and length.
func (s *Service) CreateCheckout(ctx context.Context, req domain.CreateCheckoutRequest) (*domain.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, domain.ErrNotConfigured
	}
	tier, ok := tierdomain.ParseTier(req.Tier)
	if !ok || tier == tierdomain.TierBasic {
		return nil, domain.ErrInvalidTier
	}
	if req.LengthMonths <= 0 {
		return nil, domain.ErrInvalidLength
	}
	option, ok := s.plans.Get().Lookup(string(tier), req.LengthMonths)
	if !ok {
		return nil, domain.ErrInvalidLength
	}
	restaurant, err := s.restaurants.Get(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	id := s.genID.Generate()
	metadata := map[string]string{
		metaCheckoutID:   id.String(),
		metaRestaurantID: restaurant.ID,
		metaTier:         string(tier),
		metaLengthMonths: strconv.Itoa(req.LengthMonths),
	}
	params := domain.SessionParams{
		ReferenceID:    restaurant.ID,
		ProductName:    fmt.Sprintf("TasteLanc %s, %d months", displayName(tier), req.LengthMonths),
		UnitAmount:     option.Cost * 100,
		Currency:       s.currency,
		Metadata:       metadata,
		IdempotencyKey: "checkout-" + id.String(),
	}
	if restaurant.OwnerEmail != nil {
		params.CustomerEmail = *restaurant.OwnerEmail
	}
	session, err := s.gateway.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}

	restaurantID, _ := snowflake.ParseString(restaurant.ID)
	stored := datatypes.JSONMap{}
	for k, v := range metadata {
		stored[k] = v
	}
	if req.ActorID != "" {
		stored["actor_id"] = req.ActorID
	}
	record := &domain.CheckoutSession{
		ID:                id,
		RestaurantID:      restaurantID,
		ProviderSessionID: session.ID,
		Tier:              string(tier),
		LengthMonths:      req.LengthMonths,
		Amount:            option.Cost,
		Currency:          s.currency,
		Status:            domain.StatusOpen,
		Metadata:          stored,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("checkout session created",
		zap.String("checkout_id", id.String()),
		zap.String("restaurant_id", restaurant.ID),
		zap.String("tier", string(tier)),
		zap.Int("length_months", req.LengthMonths),
	)
	return &domain.CheckoutResponse{
		ID:                id.String(),
		ProviderSessionID: session.ID,
		URL:               session.URL,
		Tier:              string(tier),
		LengthMonths:      req.LengthMonths,
		Amount:            option.Cost,
		Currency:          s.currency,
	}, nil
}

// HandleWebhook verifies a provider event and applies paid checkouts to the
// restaurant's tier. Replayed events are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.WebhookResult, error) {
	if s.gateway == nil {
		return nil, domain.ErrNotConfigured
	}
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx, s.log).With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("session_id", evt.SessionID),
	)
	result := &domain.WebhookResult{EventID: evt.ID, EventType: evt.Type}

	switch evt.Type {
	case domain.EventCheckoutCompleted:
		if !evt.Paid {
			log.Info("checkout completed without payment")
			return result, nil
		}
		applied, err := s.complete(ctx, evt)
		if err != nil {
			log.Error("apply checkout failed", zap.Error(err))
			return nil, err
		}
		result.Applied = applied
	case domain.EventCheckoutExpired:
		ok, err := s.repo.Transition(ctx, s.db, evt.SessionID, domain.StatusExpired, s.clock.Now())
		if err != nil {
			return nil, err
		}
		result.Applied = ok
	default:
		log.Debug("webhook event ignored")
		return result, nil
	}
	log.Info("webhook event handled", zap.Bool("applied", result.Applied))
	return result, nil
}

func (s *Service) complete(ctx context.Context, evt *domain.WebhookEvent) (bool, error) {
	session, err := s.repo.FindByProviderID(ctx, s.db, evt.SessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		logger.WithContext(ctx, s.log).Warn("webhook for unknown checkout session", zap.String("session_id", evt.SessionID))
		return false, nil
	}

	now := s.clock.Now()
	moved, err := s.repo.Transition(ctx, s.db, session.ProviderSessionID, domain.StatusCompleted, now)
	if err != nil || !moved {
		return false, err
	}

	current, err := s.restaurants.Get(ctx, session.RestaurantID.String())
	if err != nil {
		s.reopen(ctx, session.ProviderSessionID)
		return false, err
	}
	// A renewal of the same tier extends the running term.
	base := now
	if current.Tier == session.Tier && current.TierExpiresAt != nil && current.TierExpiresAt.After(now) {
		base = *current.TierExpiresAt
	}
	expiresAt := base.AddDate(0, session.LengthMonths, 0)

	_, err = s.restaurants.ChangeTier(ctx, restaurantdomain.ChangeTierRequest{
		RestaurantID: session.RestaurantID.String(),
		Tier:         session.Tier,
		ExpiresAt:    &expiresAt,
		Source:       restaurantdomain.SourceCheckout,
	})
	if err != nil {
		s.reopen(ctx, session.ProviderSessionID)
		return false, err
	}
	return true, nil
}

func (s *Service) reopen(ctx context.Context, providerSessionID string) {
	if err := s.repo.Reopen(ctx, s.db, providerSessionID); err != nil {
		logger.WithContext(ctx, s.log).Error("reopen checkout session failed",
			zap.String("session_id", providerSessionID),
			zap.Error(err),
		)
	}
}

func displayName(t tierdomain.Tier) string {
	name := string(t)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
