package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/analytics/domain"
	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	"github.com/tastelanc/backoffice/internal/observability/metrics"
	"github.com/tastelanc/backoffice/internal/ratelimit"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

const (
	defaultWindow  = 30 * 24 * time.Hour
	maxWindow      = 366 * 24 * time.Hour
	maxSections    = 50
	maxFieldLength = 512
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	Restaurants restaurantdomain.Repository
	Tiers       tierdomain.Service
	Limiter     *ratelimit.AnalyticsLimiter `optional:"true"`
	Metrics     *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	restaurants restaurantdomain.Repository
	tiers       tierdomain.Service
	limiter     *ratelimit.AnalyticsLimiter
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("analytics.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		restaurants: p.Restaurants,
		tiers:       p.Tiers,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
	}
}

func (s *Service) TrackPageView(ctx context.Context, req domain.PageViewRequest) error {
	restaurantID, visitorID, err := s.admit(ctx, req.RestaurantID, req.VisitorID)
	if err != nil {
		return err
	}
	view := &domain.PageView{
		ID:           s.genID.Generate(),
		RestaurantID: restaurantID,
		VisitorID:    visitorID,
		Path:         optional(req.Path),
		Referrer:     optional(req.Referrer),
		OccurredAt:   s.occurredAt(req.OccurredAt),
	}
	if err := s.repo.CreatePageView(ctx, s.db, view); err != nil {
		return err
	}
	s.metrics.RecordAnalyticsEvent(ctx, "page_view")
	return nil
}

func (s *Service) TrackClick(ctx context.Context, req domain.ClickRequest) error {
	clickType, ok := domain.ParseClickType(req.ClickType)
	if !ok {
		return domain.ErrInvalidClickType
	}
	restaurantID, visitorID, err := s.admit(ctx, req.RestaurantID, req.VisitorID)
	if err != nil {
		return err
	}
	click := &domain.Click{
		ID:           s.genID.Generate(),
		RestaurantID: restaurantID,
		VisitorID:    visitorID,
		ClickType:    clickType,
		OccurredAt:   s.occurredAt(req.OccurredAt),
	}
	if err := s.repo.CreateClick(ctx, s.db, click); err != nil {
		return err
	}
	s.metrics.RecordAnalyticsEvent(ctx, "click_"+string(clickType))
	return nil
}

func (s *Service) TrackImpressions(ctx context.Context, req domain.ImpressionsRequest) error {
	if len(req.Sections) == 0 || len(req.Sections) > maxSections {
		return domain.ErrInvalidSections
	}
	for _, section := range req.Sections {
		name := strings.TrimSpace(section.Name)
		if name == "" || len(name) > maxFieldLength || section.Position < 0 {
			return domain.ErrInvalidSections
		}
	}
	restaurantID, visitorID, err := s.admit(ctx, req.RestaurantID, req.VisitorID)
	if err != nil {
		return err
	}

	at := s.occurredAt(req.OccurredAt)
	items := make([]domain.SectionImpression, 0, len(req.Sections))
	for _, section := range req.Sections {
		items = append(items, domain.SectionImpression{
			ID:           s.genID.Generate(),
			RestaurantID: restaurantID,
			VisitorID:    visitorID,
			SectionName:  strings.ToLower(strings.TrimSpace(section.Name)),
			Position:     section.Position,
			OccurredAt:   at,
		})
	}
	if err := s.repo.CreateImpressions(ctx, s.db, items); err != nil {
		return err
	}
	s.metrics.RecordAnalyticsEvent(ctx, "section_impression")
	return nil
}

// admit validates the ids, confirms the restaurant exists and spends a token
// from the ingest buckets.
func (s *Service) admit(ctx context.Context, rawRestaurantID, rawVisitorID string) (snowflake.ID, string, error) {
	restaurantID, err := snowflake.ParseString(strings.TrimSpace(rawRestaurantID))
	if err != nil || restaurantID == 0 {
		return 0, "", domain.ErrInvalidRestaurant
	}
	visitorID := strings.TrimSpace(rawVisitorID)
	if visitorID == "" || len(visitorID) > maxFieldLength {
		return 0, "", domain.ErrInvalidVisitor
	}

	if res, reason := s.limiter.Allow(ctx, restaurantID.String(), visitorID); res != nil && !res.Allowed {
		s.metrics.RecordRateLimitDenied(ctx, "analytics", reason)
		return 0, "", &domain.RateLimitError{Reason: reason, RetryAfter: res.RetryAfter}
	}

	item, err := s.restaurants.FindByID(ctx, s.db, restaurantID)
	if err != nil {
		return 0, "", err
	}
	if item == nil {
		return 0, "", restaurantdomain.ErrNotFound
	}
	return restaurantID, visitorID, nil
}

// occurredAt trusts client timestamps unless they are missing or ahead of
// the server clock.
func (s *Service) occurredAt(at time.Time) time.Time {
	now := s.clock.Now().UTC()
	if at.IsZero() || at.After(now) {
		return now
	}
	return at.UTC()
}

// Summary needs the analytics feature. Click breakdown and section stats are
// added when the tier also has advanced analytics.
func (s *Service) Summary(ctx context.Context, req domain.SummaryRequest) (*domain.Summary, error) {
	window, err := s.window(req.From, req.To)
	if err != nil {
		return nil, err
	}
	access, err := s.tiers.Check(ctx, req.RestaurantID, tierdomain.FeatureAnalytics)
	if err != nil {
		return nil, err
	}
	restaurantID, err := snowflake.ParseString(access.RestaurantID)
	if err != nil {
		return nil, domain.ErrInvalidRestaurant
	}

	out := &domain.Summary{
		RestaurantID: access.RestaurantID,
		From:         window.From,
		To:           window.To,
	}
	if out.PageViews, err = s.repo.CountPageViews(ctx, s.db, restaurantID, window); err != nil {
		return nil, err
	}
	if out.UniqueVisitors, err = s.repo.CountUniqueVisitors(ctx, s.db, restaurantID, window); err != nil {
		return nil, err
	}
	byType, err := s.repo.CountClicksByType(ctx, s.db, restaurantID, window)
	if err != nil {
		return nil, err
	}
	for _, n := range byType {
		out.Clicks += n
	}

	if !access.Has(tierdomain.FeatureAdvancedAnalytics) {
		return out, nil
	}
	out.Advanced = true
	out.ClicksByType = make(map[string]int64, len(domain.ClickTypes()))
	for _, t := range domain.ClickTypes() {
		out.ClicksByType[string(t)] = byType[t]
	}
	if out.Sections, err = s.repo.SectionStats(ctx, s.db, restaurantID, window); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, s.log).Debug("advanced analytics summary",
		zap.String("restaurant_id", out.RestaurantID),
		zap.Int("sections", len(out.Sections)),
	)
	return out, nil
}

func (s *Service) window(from, to *time.Time) (domain.Window, error) {
	end := s.clock.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.Add(-defaultWindow)
	if from != nil {
		start = from.UTC()
	}
	if !start.Before(end) || end.Sub(start) > maxWindow {
		return domain.Window{}, domain.ErrInvalidRange
	}
	return domain.Window{From: start, To: end}, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(v) > maxFieldLength {
		v = v[:maxFieldLength]
	}
	return &v
}
