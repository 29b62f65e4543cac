package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	payperioddomain "github.com/tastelanc/backoffice/internal/payperiod/domain"
	"github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/internal/providers/email"
	"github.com/tastelanc/backoffice/internal/providers/pdf"
	"github.com/tastelanc/backoffice/pkg/db"
)

const (
	dateLayout       = "2006-01-02"
	listBatchesLimit = 52
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	Commissions commissiondomain.Repository
	PDF         pdf.Provider
	Email       email.Provider
	Publisher   events.Publisher
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	resolver    payperioddomain.Resolver
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	commissions commissiondomain.Repository
	pdf         pdf.Provider
	email       email.Provider
	publisher   events.Publisher
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payroll.service"),
		resolver:    payperioddomain.NewResolver(p.Config.PayrollLocation()),
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		commissions: p.Commissions,
		pdf:         p.PDF,
		email:       p.Email,
		publisher:   p.Publisher,
	}
}

func (s *Service) ResolvePeriod(t time.Time) payperioddomain.PayPeriod {
	return s.resolver.Resolve(t)
}

// CloseBatch totals the commission ledger of the period containing
// periodStart. A period closes once, after its last day; later calls return
// the stored batch.
func (s *Service) CloseBatch(ctx context.Context, periodStart time.Time) (*domain.CloseResult, error) {
	period := s.resolver.Resolve(periodStart)
	now := s.clock.Now()
	if now.Before(period.EndExclusive()) {
		return nil, domain.ErrPeriodOpen
	}

	var (
		batch   *domain.Batch
		lines   []domain.Line
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBatchByPeriod(ctx, tx, period.Start)
		if err != nil {
			return err
		}
		if existing != nil {
			batch = existing
			return nil
		}

		entries, err := s.commissions.ListByPeriod(ctx, tx, period.Start)
		if err != nil {
			return err
		}
		batch = &domain.Batch{
			ID:          s.genID.Generate(),
			PeriodStart: period.Start.UTC(),
			PeriodEnd:   period.End.UTC(),
			PayDate:     period.PayDate.UTC(),
			EntryCount:  len(entries),
			ClosedAt:    now,
		}
		lines = aggregate(batch.ID, entries, s.genID)
		for _, l := range lines {
			batch.TotalAmount += l.Amount
		}
		created = true
		return s.repo.CreateBatch(ctx, tx, batch, lines)
	})
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Another instance closed the period first.
		batch, err = s.repo.FindBatchByPeriod(ctx, s.db, period.Start)
		created = false
		if err == nil && batch == nil {
			err = domain.ErrBatchNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	if !created {
		lines, err = s.repo.ListLines(ctx, s.db, batch.ID)
		if err != nil {
			return nil, err
		}
	} else {
		s.publish(ctx, events.New(events.TypePayrollClosed, batch.ID.String(), now, domain.ClosedPayload{
			BatchID:     batch.ID.String(),
			PeriodStart: batch.PeriodStart,
			PayDate:     batch.PayDate,
			EntryCount:  batch.EntryCount,
			TotalAmount: batch.TotalAmount,
		}))
		logger.WithContext(ctx, s.log).Info("payroll batch closed",
			zap.String("batch_id", batch.ID.String()),
			zap.Time("period_start", batch.PeriodStart),
			zap.Int("entries", batch.EntryCount),
			zap.Int64("total_amount", batch.TotalAmount),
		)
	}
	return &domain.CloseResult{Batch: toResponse(batch, lines), Created: created}, nil
}

func aggregate(batchID snowflake.ID, entries []commissiondomain.Entry, genID *snowflake.Node) []domain.Line {
	byRep := make(map[snowflake.ID]*domain.Line)
	for _, e := range entries {
		line, ok := byRep[e.RepID]
		if !ok {
			line = &domain.Line{BatchID: batchID, RepID: e.RepID}
			byRep[e.RepID] = line
		}
		if e.IsRenewal {
			line.Renewals++
		} else {
			line.NewSales++
		}
		line.Amount += e.Amount
	}
	out := make([]domain.Line, 0, len(byRep))
	for _, line := range byRep {
		line.ID = genID.Generate()
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepID < out[j].RepID })
	return out
}

func (s *Service) GetBatch(ctx context.Context, id string) (*domain.BatchResponse, error) {
	batch, err := s.findBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, s.db, batch.ID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(batch, lines)
	return &resp, nil
}

func (s *Service) ListBatches(ctx context.Context) ([]domain.BatchResponse, error) {
	items, err := s.repo.ListBatches(ctx, s.db, listBatchesLimit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BatchResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i], nil))
	}
	return out, nil
}

func (s *Service) Statement(ctx context.Context, batchID, repID string) (io.Reader, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	rep, err := snowflake.ParseString(strings.TrimSpace(repID))
	if err != nil || rep == 0 {
		return nil, domain.ErrInvalidRepID
	}
	lines, err := s.repo.ListLines(ctx, s.db, batch.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.RepID == rep {
			data, err := s.statementData(ctx, batch, line)
			if err != nil {
				return nil, err
			}
			return s.pdf.GeneratePayrollStatement(ctx, data)
		}
	}
	return nil, domain.ErrLineNotFound
}

func (s *Service) statementData(ctx context.Context, batch *domain.Batch, line domain.Line) (pdf.StatementData, error) {
	repID := line.RepID.Int64()
	entries, err := s.commissions.List(ctx, s.db, commissiondomain.ListEntriesRequest{
		RepID:       &repID,
		PeriodStart: &batch.PeriodStart,
	})
	if err != nil {
		return pdf.StatementData{}, err
	}
	reps, err := s.repo.FindReps(ctx, s.db, []snowflake.ID{line.RepID})
	if err != nil {
		return pdf.StatementData{}, err
	}
	restaurantIDs := make([]snowflake.ID, 0, len(entries))
	for _, e := range entries {
		restaurantIDs = append(restaurantIDs, e.RestaurantID)
	}
	names, err := s.repo.RestaurantNames(ctx, s.db, restaurantIDs)
	if err != nil {
		return pdf.StatementData{}, err
	}

	rep, ok := reps[line.RepID]
	if !ok {
		rep = domain.Rep{ID: line.RepID, Name: "Rep " + line.RepID.String()}
	}
	loc := s.resolver.Location()
	data := pdf.StatementData{
		RepName:     rep.Name,
		RepEmail:    rep.Email,
		PeriodStart: batch.PeriodStart.In(loc).Format(dateLayout),
		PeriodEnd:   batch.PeriodEnd.In(loc).Format(dateLayout),
		PayDate:     batch.PayDate.In(loc).Format(dateLayout),
		BatchID:     batch.ID.String(),
		NewSales:    line.NewSales,
		Renewals:    line.Renewals,
		Total:       formatAmount(line.Amount),
	}
	// entries come newest first
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		kind := "new"
		if e.IsRenewal {
			kind = "renewal"
		}
		name, ok := names[e.RestaurantID]
		if !ok {
			name = e.RestaurantID.String()
		}
		data.Lines = append(data.Lines, pdf.StatementLine{
			SoldAt:     e.SoldAt.In(loc).Format(dateLayout),
			Restaurant: name,
			Plan:       fmt.Sprintf("%s %dmo", e.PlanName, e.LengthMonths),
			Kind:       kind,
			Tier:       e.TierLabel,
			Amount:     formatAmount(e.Amount),
		})
	}
	return data, nil
}

// SendStatements emails every rep in the batch their statement. The batch is
// marked sent only when every email went out, so a retry resends to all.
func (s *Service) SendStatements(ctx context.Context, batchID string) (*domain.SendResult, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.StatementsSentAt != nil {
		return nil, domain.ErrStatementsAlreadySent
	}
	lines, err := s.repo.ListLines(ctx, s.db, batch.ID)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("batch_id", batch.ID.String()))
	result := &domain.SendResult{BatchID: batch.ID.String()}
	var errs []error
	for _, line := range lines {
		if err := s.sendOne(ctx, batch, line); err != nil {
			log.Warn("statement not sent", zap.String("rep_id", line.RepID.String()), zap.Error(err))
			result.Failed = append(result.Failed, line.RepID.String())
			errs = append(errs, err)
			continue
		}
		result.Sent++
	}
	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}

	if _, err := s.repo.MarkStatementsSent(ctx, s.db, batch.ID, s.clock.Now()); err != nil {
		return result, err
	}
	log.Info("payroll statements sent", zap.Int("sent", result.Sent))
	return result, nil
}

func (s *Service) sendOne(ctx context.Context, batch *domain.Batch, line domain.Line) error {
	data, err := s.statementData(ctx, batch, line)
	if err != nil {
		return err
	}
	if data.RepEmail == "" {
		return fmt.Errorf("rep %s has no email", line.RepID)
	}
	doc, err := s.pdf.GeneratePayrollStatement(ctx, data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, doc); err != nil {
		return err
	}
	return s.email.SendTemplate(ctx, []string{data.RepEmail}, "payroll_statement", map[string]any{
		"rep_name":     data.RepName,
		"period_start": data.PeriodStart,
		"period_end":   data.PeriodEnd,
		"pay_date":     data.PayDate,
		"total":        data.Total,
	}, email.Attachment{
		Filename:    fmt.Sprintf("statement-%s.pdf", data.PeriodStart),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	})
}

func (s *Service) findBatch(ctx context.Context, id string) (*domain.Batch, error) {
	batchID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || batchID == 0 {
		return nil, domain.ErrInvalidBatchID
	}
	batch, err := s.repo.FindBatchByID(ctx, s.db, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrBatchNotFound
	}
	return batch, nil
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

func formatAmount(amount int64) string {
	return fmt.Sprintf("$%d", amount)
}

func toResponse(b *domain.Batch, lines []domain.Line) domain.BatchResponse {
	resp := domain.BatchResponse{
		ID:               b.ID.String(),
		PeriodStart:      b.PeriodStart,
		PeriodEnd:        b.PeriodEnd,
		PayDate:          b.PayDate,
		EntryCount:       b.EntryCount,
		TotalAmount:      b.TotalAmount,
		ClosedAt:         b.ClosedAt,
		StatementsSentAt: b.StatementsSentAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, domain.LineResponse{
			RepID:    l.RepID.String(),
			NewSales: l.NewSales,
			Renewals: l.Renewals,
			Amount:   l.Amount,
		})
	}
	return resp
}
