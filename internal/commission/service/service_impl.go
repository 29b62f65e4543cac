package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	"github.com/tastelanc/backoffice/internal/observability/metrics"
	payperioddomain "github.com/tastelanc/backoffice/internal/payperiod/domain"
)

const defaultListLimit = 500

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Plans     *config.CommissionConfigHolder
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      domain.Repository
	Publisher events.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	plans     *config.CommissionConfigHolder
	resolver  payperioddomain.Resolver
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("commission.service"),
		plans:     p.Plans,
		resolver:  payperioddomain.NewResolver(p.Config.PayrollLocation()),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if strings.TrimSpace(req.PlanName) == "" {
		return nil, domain.ErrInvalidPlan
	}
	if req.LengthMonths <= 0 {
		return nil, domain.ErrInvalidLength
	}
	if req.SignupsInPeriod < 0 {
		return nil, domain.ErrInvalidSignups
	}

	table := s.plans.Get()
	_, matched := table.Lookup(req.PlanName, req.LengthMonths)
	if !matched {
		s.metrics.RecordUnmatchedPlan(ctx, req.PlanName)
	}
	return &domain.Quote{
		PlanName:        strings.TrimSpace(req.PlanName),
		LengthMonths:    req.LengthMonths,
		IsRenewal:       req.IsRenewal,
		SignupsInPeriod: req.SignupsInPeriod,
		Tier:            domain.TierFor(req.SignupsInPeriod),
		Amount:          table.Payout(req.PlanName, req.LengthMonths, req.IsRenewal, req.SignupsInPeriod),
		Matched:         matched,
	}, nil
}

func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (*domain.EntryResponse, error) {
	repID, err := snowflake.ParseString(strings.TrimSpace(req.RepID))
	if err != nil || repID == 0 {
		return nil, domain.ErrInvalidRep
	}
	restaurantID, err := snowflake.ParseString(strings.TrimSpace(req.RestaurantID))
	if err != nil || restaurantID == 0 {
		return nil, domain.ErrInvalidRestaurant
	}
	planName := strings.TrimSpace(req.PlanName)
	if planName == "" {
		return nil, domain.ErrInvalidPlan
	}
	if req.LengthMonths <= 0 {
		return nil, domain.ErrInvalidLength
	}

	log := logger.WithContext(ctx, s.log)
	opt, ok := s.plans.Get().Lookup(planName, req.LengthMonths)
	if !ok {
		log.Warn("commission.plan_not_found",
			zap.String("plan_name", planName),
			zap.Int("length_months", req.LengthMonths),
			zap.String("rep_id", repID.String()),
		)
		s.metrics.RecordUnmatchedPlan(ctx, planName)
		return nil, domain.ErrUnknownPlan
	}

	now := s.clock.Now()
	soldAt := req.SoldAt.UTC()
	if req.SoldAt.IsZero() {
		soldAt = now
	}
	if soldAt.After(now) {
		return nil, domain.ErrInvalidSoldAt
	}
	period := s.resolver.Resolve(soldAt)

	var entry *domain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.LockRep(ctx, tx, repID.Int64()); err != nil {
			return err
		}
		closed, err := s.repo.PeriodClosed(ctx, tx, period.Start)
		if err != nil {
			return err
		}
		if closed {
			log.Warn("commission.period_closed",
				zap.String("rep_id", repID.String()),
				zap.Time("period_start", period.Start),
			)
			return domain.ErrPeriodClosed
		}

		prior, err := s.repo.CountNewSignups(ctx, tx, repID.Int64(), domain.WindowStart(soldAt), soldAt)
		if err != nil {
			return err
		}
		signups := int(prior)
		if !req.IsRenewal {
			signups++
		}
		tier := domain.TierFor(signups)

		entry = &domain.Entry{
			ID:              s.genID.Generate(),
			RepID:           repID,
			RestaurantID:    restaurantID,
			PlanName:        planName,
			LengthMonths:    opt.LengthMonths,
			IsRenewal:       req.IsRenewal,
			SignupsInWindow: signups,
			TierLabel:       tier.Label,
			Amount:          opt.PayoutFor(tier, req.IsRenewal),
			SoldAt:          soldAt,
			PeriodStart:     period.Start.UTC(),
			CreatedAt:       s.clock.Now(),
		}
		return s.repo.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCommissionEntry(ctx, planName, entry.TierLabel, entry.IsRenewal, entry.Amount)
	resp := toResponse(entry)
	s.publish(ctx, events.New(events.TypeCommissionRecorded, resp.RepID, entry.CreatedAt, domain.RecordedPayload{
		EntryID:      resp.ID,
		RepID:        resp.RepID,
		RestaurantID: resp.RestaurantID,
		PlanName:     resp.PlanName,
		LengthMonths: resp.LengthMonths,
		IsRenewal:    resp.IsRenewal,
		Tier:         resp.Tier,
		Amount:       resp.Amount,
		SoldAt:       resp.SoldAt,
		PeriodStart:  resp.PeriodStart,
	}))
	log.Info("commission recorded",
		zap.String("entry_id", resp.ID),
		zap.String("rep_id", resp.RepID),
		zap.String("tier", resp.Tier),
		zap.Int64("amount", resp.Amount),
	)
	return &resp, nil
}

func (s *Service) ListEntries(ctx context.Context, req domain.ListEntriesRequest) ([]domain.EntryResponse, error) {
	if req.Limit <= 0 || req.Limit > defaultListLimit {
		req.Limit = defaultListLimit
	}
	if req.PeriodStart != nil {
		start := s.resolver.Resolve(*req.PeriodStart).Start
		req.PeriodStart = &start
	}
	items, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	out := make([]domain.EntryResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) SignupsInWindow(ctx context.Context, repID string, at time.Time) (int, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(repID))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidRep
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	count, err := s.repo.CountNewSignups(ctx, s.db, id.Int64(), domain.WindowStart(at), at)
	if err != nil {
		return 0, err
	}
	return int(count), nil
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

func toResponse(e *domain.Entry) domain.EntryResponse {
	return domain.EntryResponse{
		ID:              e.ID.String(),
		RepID:           e.RepID.String(),
		RestaurantID:    e.RestaurantID.String(),
		PlanName:        e.PlanName,
		LengthMonths:    e.LengthMonths,
		IsRenewal:       e.IsRenewal,
		SignupsInWindow: e.SignupsInWindow,
		Tier:            e.TierLabel,
		Amount:          e.Amount,
		SoldAt:          e.SoldAt,
		PeriodStart:     e.PeriodStart,
		CreatedAt:       e.CreatedAt,
	}
}
