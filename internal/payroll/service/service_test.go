package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/clock"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	commissionrepo "github.com/tastelanc/backoffice/internal/commission/repository"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/events/mocks"
	"github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/internal/payroll/repository"
	"github.com/tastelanc/backoffice/internal/providers/email"
	"github.com/tastelanc/backoffice/internal/providers/pdf"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

// Sunday 2026-10-11 through Saturday 2026-10-17, paid Friday 2026-10-23.
var periodStart = time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

type fakeEmail struct {
	email.NoOpProvider
	failFor map[string]bool
	sent    []string
	files   []email.Attachment
}

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, name string, data map[string]any, attachments ...email.Attachment) error {
	if f.failFor[to[0]] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, to[0])
	f.files = append(f.files, attachments...)
	return nil
}

type fixture struct {
	svc       domain.Service
	clock     *clock.FakeClock
	publisher *mocks.MockPublisher
	mail      *fakeEmail
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	conn := dbtest.Open(t,
		&authdomain.User{}, &restaurantdomain.Restaurant{},
		&commissiondomain.Entry{}, &domain.Batch{}, &domain.Line{},
	)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	require.NoError(t, conn.Create(&[]authdomain.User{
		{ID: 7, Email: "ana@tastelanc.com", Name: "Ana", Role: authdomain.RoleSalesRep, PasswordHash: "x", Active: true},
		{ID: 8, Email: "ben@tastelanc.com", Name: "Ben", Role: authdomain.RoleSalesRep, PasswordHash: "x", Active: true},
	}).Error)
	require.NoError(t, conn.Create(&restaurantdomain.Restaurant{
		ID: 100, Name: "Luca", Slug: "luca", Tier: tierdomain.TierPremium,
	}).Error)

	entries := commissionrepo.Provide()
	for i, e := range []commissiondomain.Entry{
		{RepID: 7, PlanName: "premium", LengthMonths: 3, TierLabel: "standard", Amount: 38, SoldAt: periodStart.Add(30 * time.Hour)},
		{RepID: 7, PlanName: "elite", LengthMonths: 12, IsRenewal: true, TierLabel: "standard", Amount: 110, SoldAt: periodStart.Add(50 * time.Hour)},
		{RepID: 8, PlanName: "premium", LengthMonths: 1, TierLabel: "standard", Amount: 13, SoldAt: periodStart.Add(70 * time.Hour)},
		{RepID: 8, PlanName: "premium", LengthMonths: 1, TierLabel: "standard", Amount: 13, SoldAt: periodStart.AddDate(0, 0, -2)},
	} {
		e := e
		e.ID = snowflake.ID(1000 + i)
		e.RestaurantID = 100
		e.PeriodStart = periodStart
		if e.SoldAt.Before(periodStart) {
			e.PeriodStart = periodStart.AddDate(0, 0, -7)
		}
		require.NoError(t, entries.Create(context.Background(), conn, &e))
	}

	f := &fixture{
		clock:     clock.NewFakeClock(now),
		publisher: mocks.NewMockPublisher(ctrl),
		mail:      &fakeEmail{failFor: map[string]bool{}},
	}
	f.svc = New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		Config:      config.Config{},
		Clock:       f.clock,
		GenID:       node,
		Repo:        repository.Provide(),
		Commissions: entries,
		PDF:         pdf.New(),
		Email:       f.mail,
		Publisher:   f.publisher,
	})
	return f
}

func TestCloseBatchRejectsOpenPeriod(t *testing.T) {
	f := newFixture(t, periodStart.AddDate(0, 0, 6).Add(23*time.Hour))

	_, err := f.svc.CloseBatch(context.Background(), periodStart.AddDate(0, 0, 3))
	assert.ErrorIs(t, err, domain.ErrPeriodOpen)
}

func TestCloseBatchAggregatesPerRep(t *testing.T) {
	f := newFixture(t, periodStart.AddDate(0, 0, 9))
	ctx := context.Background()

	var published []events.Event
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt events.Event) error {
		published = append(published, evt)
		return nil
	}).Times(1)

	res, err := f.svc.CloseBatch(ctx, periodStart.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.Batch.PeriodStart.Equal(periodStart))
	assert.True(t, res.Batch.PayDate.Equal(time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, res.Batch.EntryCount)
	assert.Equal(t, int64(161), res.Batch.TotalAmount)
	require.Len(t, res.Batch.Lines, 2)
	assert.Equal(t, domain.LineResponse{RepID: "7", NewSales: 1, Renewals: 1, Amount: 148}, res.Batch.Lines[0])
	assert.Equal(t, domain.LineResponse{RepID: "8", NewSales: 1, Amount: 13}, res.Batch.Lines[1])

	require.Len(t, published, 1)
	assert.Equal(t, events.TypePayrollClosed, published[0].Type)

	again, err := f.svc.CloseBatch(ctx, periodStart)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.Batch.ID, again.Batch.ID)
	assert.Len(t, again.Batch.Lines, 2)

	list, err := f.svc.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Lines)
}

func TestStatementRendersPDF(t *testing.T) {
	f := newFixture(t, periodStart.AddDate(0, 0, 9))
	ctx := context.Background()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	res, err := f.svc.CloseBatch(ctx, periodStart)
	require.NoError(t, err)

	doc, err := f.svc.Statement(ctx, res.Batch.ID, "7")
	require.NoError(t, err)
	raw, err := io.ReadAll(doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))

	_, err = f.svc.Statement(ctx, res.Batch.ID, "99")
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
	_, err = f.svc.Statement(ctx, res.Batch.ID, "rep")
	assert.ErrorIs(t, err, domain.ErrInvalidRepID)
	_, err = f.svc.Statement(ctx, "12345", "7")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	_, err = f.svc.GetBatch(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidBatchID)
}

func TestSendStatementsMarksBatchOnlyWhenAllSucceed(t *testing.T) {
	f := newFixture(t, periodStart.AddDate(0, 0, 9))
	ctx := context.Background()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	res, err := f.svc.CloseBatch(ctx, periodStart)
	require.NoError(t, err)

	f.mail.failFor["ben@tastelanc.com"] = true
	sent, err := f.svc.SendStatements(ctx, res.Batch.ID)
	assert.Error(t, err)
	assert.Equal(t, 1, sent.Sent)
	assert.Equal(t, []string{"8"}, sent.Failed)

	batch, err := f.svc.GetBatch(ctx, res.Batch.ID)
	require.NoError(t, err)
	assert.Nil(t, batch.StatementsSentAt)

	delete(f.mail.failFor, "ben@tastelanc.com")
	sent, err = f.svc.SendStatements(ctx, res.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sent.Sent)
	assert.Equal(t, []string{"ana@tastelanc.com", "ana@tastelanc.com", "ben@tastelanc.com"}, f.mail.sent)
	assert.Equal(t, "application/pdf", f.mail.files[0].ContentType)
	assert.Equal(t, "statement-2026-10-11.pdf", f.mail.files[0].Filename)

	_, err = f.svc.SendStatements(ctx, res.Batch.ID)
	assert.ErrorIs(t, err, domain.ErrStatementsAlreadySent)
}
