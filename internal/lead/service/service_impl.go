package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/lead/domain"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	"github.com/tastelanc/backoffice/internal/observability/metrics"
	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

const (
	sweepBatchSize = 200
	nudgeInterval  = domain.NudgeAfterDays * 24 * time.Hour
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      domain.Repository
	Notifier  domain.Notifier
	Publisher events.Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	baseURL   string
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	notifier  domain.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("lead.service"),
		baseURL:   p.Config.PublicBaseURL,
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		notifier:  p.Notifier,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.BusinessName)
	if name == "" {
		return nil, domain.ErrInvalidBusinessName
	}
	ownerID, err := optionalID(req.OwnerID, domain.ErrInvalidOwner)
	if err != nil {
		return nil, err
	}
	restaurantID, err := optionalID(req.RestaurantID, domain.ErrInvalidRestaurant)
	if err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		ID:           s.genID.Generate(),
		BusinessName: name,
		ContactName:  optionalString(req.ContactName),
		Email:        optionalString(strings.ToLower(req.Email)),
		Phone:        optionalString(req.Phone),
		Notes:        optionalString(req.Notes),
		Status:       domain.StatusNew,
		OwnerID:      ownerID,
		RestaurantID: restaurantID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, lead); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, s.log).Info("lead created", zap.String("lead_id", lead.ID.String()))
	return s.toResponse(lead, s.clock.Now()), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	leadID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	lead, err := s.repo.FindByID(ctx, s.db, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	return s.toResponse(lead, s.clock.Now()), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Unassigned: req.Unassigned,
		Limit:      req.Limit() + 1,
	}
	if strings.TrimSpace(req.OwnerID) != "" {
		owner, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
		if err != nil {
			return nil, domain.ErrInvalidOwner
		}
		v := owner.Int64()
		filter.OwnerID = &v
	}
	if strings.TrimSpace(req.Status) != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
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
	items, pageInfo := pagination.Page(items, req.Limit(), func(l domain.Lead) int64 { return l.ID.Int64() })

	// One sampled now for the whole page keeps classifications consistent.
	now := s.clock.Now()
	data := make([]domain.Response, 0, len(items))
	for i := range items {
		data = append(data, *s.toResponse(&items[i], now))
	}
	return &domain.ListResponse{Data: data, PageInfo: pageInfo}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	leadID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var lead *domain.Lead
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, leadID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		found.Status = status
		if req.Notes != nil {
			found.Notes = optionalString(*req.Notes)
		}
		touch(found, now)
		lead = found
		return s.repo.Update(ctx, tx, found)
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(lead, now), nil
}

// Claim hands the lead to the rep when it is unassigned, already theirs, or
// stale. Anything else is ErrLeadNotClaimable.
func (s *Service) Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Response, error) {
	leadID, err := parseID(req.LeadID)
	if err != nil {
		return nil, err
	}
	repID, err := snowflake.ParseString(strings.TrimSpace(req.RepID))
	if err != nil || repID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	now := s.clock.Now()
	var (
		lead     *domain.Lead
		previous *snowflake.ID
		wasStale bool
		claimed  bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, leadID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		if found.OwnerID != nil && *found.OwnerID == repID {
			lead = found
			return nil
		}
		wasStale = domain.Classify(found.Aging(), now).IsStale
		if found.OwnerID != nil && !wasStale {
			return domain.ErrLeadNotClaimable
		}
		if !found.Status.Open() {
			return domain.ErrLeadNotClaimable
		}

		previous = found.OwnerID
		found.OwnerID = &repID
		touch(found, now)
		lead = found
		claimed = true
		return s.repo.Update(ctx, tx, found)
	})
	if err != nil {
		return nil, err
	}

	if claimed {
		if previous != nil {
			s.metrics.RecordLeadReclaimed(ctx)
		}
		payload := domain.ClaimedPayload{
			LeadID:   lead.ID.String(),
			NewOwner: repID.String(),
			WasStale: wasStale,
		}
		if previous != nil {
			payload.PreviousOwner = previous.String()
		}
		s.publish(ctx, events.New(events.TypeLeadClaimed, lead.ID.String(), now, payload))
		logger.WithContext(ctx, s.log).Info("lead claimed",
			zap.String("lead_id", payload.LeadID),
			zap.String("owner_id", payload.NewOwner),
			zap.String("previous_owner_id", payload.PreviousOwner),
		)
	}
	return s.toResponse(lead, now), nil
}

// Assign is a manager override: the owner changes regardless of age.
func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (*domain.Response, error) {
	leadID, err := parseID(req.LeadID)
	if err != nil {
		return nil, err
	}
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	now := s.clock.Now()
	var lead *domain.Lead
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := s.repo.FindOwner(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return domain.ErrInvalidOwner
		}
		found, err := s.repo.FindByIDForUpdate(ctx, tx, leadID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		found.OwnerID = &ownerID
		touch(found, now)
		lead = found
		return s.repo.Update(ctx, tx, found)
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(lead, now), nil
}

// Sweep walks open, owned leads older than the nudge threshold. Owners of
// nudge-age leads are reminded at most once per nudge interval; leads that
// just crossed the stale threshold are announced once.
func (s *Service) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	now := s.clock.Now()
	log := logger.WithContext(ctx, s.log)
	result := &domain.SweepResult{}
	var errs []error

	filter := domain.AgingFilter{
		Cutoff: now.Add(-nudgeInterval),
		Limit:  sweepBatchSize,
	}
	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		batch, err := s.repo.ListAging(ctx, s.db, filter)
		if err != nil {
			errs = append(errs, err)
			break
		}
		for i := range batch {
			lead := &batch[i]
			result.Scanned++
			if err := s.sweepOne(ctx, lead, now, result); err != nil {
				log.Warn("lead sweep failed", zap.String("lead_id", lead.ID.String()), zap.Error(err))
				errs = append(errs, err)
			}
		}
		if len(batch) < sweepBatchSize {
			break
		}
		filter.AfterID = batch[len(batch)-1].ID.Int64()
	}

	log.Info("lead sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("nudged", result.Nudged),
		zap.Int("marked_stale", result.MarkedStale),
	)
	return result, errors.Join(errs...)
}

func (s *Service) sweepOne(ctx context.Context, lead *domain.Lead, now time.Time, result *domain.SweepResult) error {
	c := domain.Classify(lead.Aging(), now)
	switch {
	case c.IsStale:
		if lead.StaleSince != nil {
			return nil
		}
		marked, err := s.repo.MarkStale(ctx, s.db, lead.ID, now)
		if err != nil || !marked {
			return err
		}
		result.MarkedStale++
		s.publish(ctx, events.New(events.TypeLeadStale, lead.ID.String(), now, domain.StalePayload{
			LeadID:          lead.ID.String(),
			OwnerID:         lead.OwnerID.String(),
			BusinessName:    lead.BusinessName,
			DaysSinceUpdate: c.DaysSinceUpdate,
		}))
		return nil
	case c.IsNudge:
		if lead.LastNudgedAt != nil && now.Sub(*lead.LastNudgedAt) < nudgeInterval {
			return nil
		}
		owner, err := s.repo.FindOwner(ctx, s.db, *lead.OwnerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return nil
		}
		channels, err := s.notifier.Nudge(ctx, *owner, domain.Notice{
			LeadID:         lead.ID.String(),
			BusinessName:   lead.BusinessName,
			DaysSinceTouch: c.DaysSinceUpdate,
			LeadURL:        s.baseURL + "/leads/" + lead.ID.String(),
		})
		if len(channels) == 0 {
			return err
		}
		for _, ch := range channels {
			s.metrics.RecordLeadNudge(ctx, ch)
		}
		result.Nudged++
		if markErr := s.repo.MarkNudged(ctx, s.db, lead.ID, now); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}
	return nil
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

// touch records activity: the lead's age restarts and reminders reset.
func touch(lead *domain.Lead, now time.Time) {
	lead.UpdatedAt = &now
	lead.StaleSince = nil
	lead.LastNudgedAt = nil
}

func (s *Service) toResponse(l *domain.Lead, now time.Time) *domain.Response {
	resp := &domain.Response{
		ID:             l.ID.String(),
		BusinessName:   l.BusinessName,
		ContactName:    l.ContactName,
		Email:          l.Email,
		Phone:          l.Phone,
		Notes:          l.Notes,
		Status:         string(l.Status),
		LastNudgedAt:   l.LastNudgedAt,
		StaleSince:     l.StaleSince,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
		Classification: domain.Classify(l.Aging(), now),
	}
	if l.OwnerID != nil {
		v := l.OwnerID.String()
		resp.OwnerID = &v
	}
	if l.RestaurantID != nil {
		v := l.RestaurantID.String()
		resp.RestaurantID = &v
	}
	return resp
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func optionalID(raw string, invalid error) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, invalid
	}
	return &id, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
