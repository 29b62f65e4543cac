package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/commission/repository"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/events/mocks"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

// Friday 2026-10-16; its pay period starts Sunday 2026-10-11.
var soldAt = time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *mocks.MockPublisher) {
	t.Helper()
	svc, pub, _ := newTestServiceWithRepo(t, repository.Provide())
	return svc, pub
}

func newTestServiceWithRepo(t *testing.T, repo domain.Repository) (domain.Service, *mocks.MockPublisher, *gorm.DB) {
	t.Helper()
	ctrl := gomock.NewController(t)
	conn := dbtest.Open(t, &domain.Entry{}, &payrolldomain.Batch{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	pub := mocks.NewMockPublisher(ctrl)

	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		Config:    config.Config{},
		Plans:     config.NewStaticCommissionConfigHolder(domain.DefaultPlanTable()),
		Clock:     clock.NewFakeClock(soldAt),
		GenID:     node,
		Repo:      repo,
		Publisher: pub,
	})
	return svc, pub, conn
}

func sale(renewal bool, at time.Time) domain.RecordSaleRequest {
	return domain.RecordSaleRequest{
		RepID:        "7",
		RestaurantID: "100",
		PlanName:     "premium",
		LengthMonths: 3,
		IsRenewal:    renewal,
		SoldAt:       at,
	}
}

func TestQuote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	q, err := svc.Quote(ctx, domain.QuoteRequest{PlanName: "Premium", LengthMonths: 3, SignupsInPeriod: 5})
	require.NoError(t, err)
	assert.True(t, q.Matched)
	assert.Equal(t, int64(38), q.Amount)
	assert.Equal(t, "standard", q.Tier.Label)

	q, err = svc.Quote(ctx, domain.QuoteRequest{PlanName: "Elite", LengthMonths: 12, IsRenewal: true, SignupsInPeriod: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(110), q.Amount)

	q, err = svc.Quote(ctx, domain.QuoteRequest{PlanName: "Platinum", LengthMonths: 3})
	require.NoError(t, err)
	assert.False(t, q.Matched)
	assert.Zero(t, q.Amount)

	_, err = svc.Quote(ctx, domain.QuoteRequest{PlanName: "Premium", LengthMonths: 3, SignupsInPeriod: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidSignups)
}

func TestRecordSaleReachesBonusOnSeventhSignup(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(7)

	var last *domain.EntryResponse
	for i := 0; i < 7; i++ {
		entry, err := svc.RecordSale(ctx, sale(false, soldAt.Add(-time.Duration(6-i)*time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.SignupsInWindow)
		last = entry
	}
	assert.Equal(t, "bonus", last.Tier)
	assert.Equal(t, int64(50), last.Amount)

	signups, err := svc.SignupsInWindow(ctx, "7", soldAt)
	require.NoError(t, err)
	assert.Equal(t, 7, signups)
}

func TestRecordSaleRenewalDoesNotCountAsSignup(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := svc.RecordSale(ctx, sale(false, soldAt.Add(-time.Hour)))
	require.NoError(t, err)
	entry, err := svc.RecordSale(ctx, sale(true, soldAt))
	require.NoError(t, err)

	assert.Equal(t, 1, entry.SignupsInWindow)
	assert.Equal(t, int64(19), entry.Amount)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), entry.PeriodStart)
}

func TestRecordSaleWindowIsRolling(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	old := soldAt.Add(-domain.TierResetWindow - time.Hour)
	for i := 0; i < 6; i++ {
		_, err := svc.RecordSale(ctx, sale(false, old.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	entry, err := svc.RecordSale(ctx, sale(false, soldAt))
	require.NoError(t, err)
	assert.Equal(t, 1, entry.SignupsInWindow)
	assert.Equal(t, "standard", entry.Tier)
}

func TestRecordSalePublishesEvent(t *testing.T) {
	svc, pub := newTestService(t)
	var got events.Event
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt events.Event) error {
		got = evt
		return nil
	})

	entry, err := svc.RecordSale(context.Background(), sale(false, soldAt))
	require.NoError(t, err)

	assert.Equal(t, events.TypeCommissionRecorded, got.Type)
	assert.Equal(t, "7", got.Key)
	payload, ok := got.Payload.(domain.RecordedPayload)
	require.True(t, ok)
	assert.Equal(t, entry.ID, payload.EntryID)
	assert.Equal(t, int64(38), payload.Amount)
}

func TestRecordSaleRejectsUnknownPlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, domain.RecordSaleRequest{RepID: "7", RestaurantID: "100", PlanName: "Premium", LengthMonths: 9})
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
	_, err = svc.RecordSale(ctx, domain.RecordSaleRequest{RepID: "x", RestaurantID: "100", PlanName: "Premium", LengthMonths: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidRep)
	_, err = svc.RecordSale(ctx, domain.RecordSaleRequest{RepID: "7", RestaurantID: "100", PlanName: " ", LengthMonths: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)
}

func TestListEntriesByPeriod(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := svc.RecordSale(ctx, sale(false, soldAt))
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, sale(false, soldAt.AddDate(0, 0, -7)))
	require.NoError(t, err)

	anyDayInPeriod := time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC)
	entries, err := svc.ListEntries(ctx, domain.ListEntriesRequest{PeriodStart: &anyDayInPeriod})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, soldAt, entries[0].SoldAt.UTC())
}

func TestRecordSaleRejectsClosedPeriod(t *testing.T) {
	svc, pub, conn := newTestServiceWithRepo(t, repository.Provide())
	ctx := context.Background()

	previous := time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&payrolldomain.Batch{
		ID:          1,
		PeriodStart: previous,
		PeriodEnd:   previous.AddDate(0, 0, 7),
		PayDate:     previous.AddDate(0, 0, 12),
		ClosedAt:    soldAt,
	}).Error)

	_, err := svc.RecordSale(ctx, sale(false, previous.Add(30*time.Hour)))
	assert.ErrorIs(t, err, domain.ErrPeriodClosed)

	entries, err := svc.ListEntries(ctx, domain.ListEntriesRequest{PeriodStart: &previous})
	require.NoError(t, err)
	assert.Empty(t, entries)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	entry, err := svc.RecordSale(ctx, sale(false, soldAt))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), entry.PeriodStart)
}

func TestRecordSaleRejectsFutureSoldAt(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RecordSale(context.Background(), sale(false, soldAt.Add(time.Minute)))
	assert.ErrorIs(t, err, domain.ErrInvalidSoldAt)
}

type orderedRepo struct {
	domain.Repository
	calls []string
}

func (r *orderedRepo) LockRep(ctx context.Context, db *gorm.DB, repID int64) error {
	r.calls = append(r.calls, "lock")
	return r.Repository.LockRep(ctx, db, repID)
}

func (r *orderedRepo) CountNewSignups(ctx context.Context, db *gorm.DB, repID int64, from, to time.Time) (int64, error) {
	r.calls = append(r.calls, "count")
	return r.Repository.CountNewSignups(ctx, db, repID, from, to)
}

func (r *orderedRepo) Create(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	r.calls = append(r.calls, "create")
	return r.Repository.Create(ctx, db, entry)
}

func TestRecordSaleLocksRepBeforeCounting(t *testing.T) {
	repo := &orderedRepo{Repository: repository.Provide()}
	svc, pub, _ := newTestServiceWithRepo(t, repo)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(7)

	var last *domain.EntryResponse
	for i := 0; i < 7; i++ {
		entry, err := svc.RecordSale(ctx, sale(false, soldAt))
		require.NoError(t, err)
		last = entry
	}
	assert.Equal(t, 7, last.SignupsInWindow)
	assert.Equal(t, "bonus", last.Tier)

	require.Len(t, repo.calls, 21)
	for i := 0; i < len(repo.calls); i += 3 {
		assert.Equal(t, []string{"lock", "count", "create"}, repo.calls[i:i+3])
	}
}
