package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/analytics/domain"
	"github.com/tastelanc/backoffice/internal/analytics/repository"
	"github.com/tastelanc/backoffice/internal/clock"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	restaurantrepo "github.com/tastelanc/backoffice/internal/restaurant/repository"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
	tierservice "github.com/tastelanc/backoffice/internal/tier/service"
	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.Open(t,
		&restaurantdomain.Restaurant{},
		&domain.PageView{}, &domain.Click{}, &domain.SectionImpression{},
	)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)

	require.NoError(t, conn.Create(&[]restaurantdomain.Restaurant{
		{ID: 1, Name: "Basic Bistro", Slug: "basic-bistro", Tier: tierdomain.TierBasic},
		{ID: 2, Name: "Premium Pub", Slug: "premium-pub", Tier: tierdomain.TierPremium},
		{ID: 3, Name: "Elite Eatery", Slug: "elite-eatery", Tier: tierdomain.TierElite},
	}).Error)

	restaurants := restaurantrepo.Provide()
	tiers := tierservice.New(tierservice.Params{DB: conn, Log: zap.NewNop(), Clock: clk, Repo: restaurants})
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		Clock:       clk,
		GenID:       node,
		Repo:        repository.Provide(),
		Restaurants: restaurants,
		Tiers:       tiers,
	})
	return svc, clk
}

func seedTraffic(t *testing.T, svc domain.Service, restaurantID string) {
	t.Helper()
	ctx := context.Background()
	for _, visitor := range []string{"v1", "v1", "v2"} {
		require.NoError(t, svc.TrackPageView(ctx, domain.PageViewRequest{
			RestaurantID: restaurantID, VisitorID: visitor, Path: "/r/x",
			OccurredAt: now.Add(-time.Hour),
		}))
	}
	for _, c := range []string{"phone", "Menu", "menu"} {
		require.NoError(t, svc.TrackClick(ctx, domain.ClickRequest{
			RestaurantID: restaurantID, VisitorID: "v1", ClickType: c,
			OccurredAt: now.Add(-time.Hour),
		}))
	}
	require.NoError(t, svc.TrackImpressions(ctx, domain.ImpressionsRequest{
		RestaurantID: restaurantID, VisitorID: "v2",
		Sections:   []domain.SectionRequest{{Name: "Happy Hours", Position: 1}, {Name: "menu", Position: 3}},
		OccurredAt: now.Add(-time.Hour),
	}))
}

func TestTrackValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.TrackPageView(ctx, domain.PageViewRequest{RestaurantID: "x", VisitorID: "v"})
	assert.ErrorIs(t, err, domain.ErrInvalidRestaurant)
	err = svc.TrackPageView(ctx, domain.PageViewRequest{RestaurantID: "1", VisitorID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidVisitor)
	err = svc.TrackPageView(ctx, domain.PageViewRequest{RestaurantID: "99", VisitorID: "v"})
	assert.ErrorIs(t, err, restaurantdomain.ErrNotFound)
	err = svc.TrackClick(ctx, domain.ClickRequest{RestaurantID: "1", VisitorID: "v", ClickType: "email"})
	assert.ErrorIs(t, err, domain.ErrInvalidClickType)
	err = svc.TrackImpressions(ctx, domain.ImpressionsRequest{RestaurantID: "1", VisitorID: "v"})
	assert.ErrorIs(t, err, domain.ErrInvalidSections)
	err = svc.TrackImpressions(ctx, domain.ImpressionsRequest{
		RestaurantID: "1", VisitorID: "v", Sections: []domain.SectionRequest{{Name: "menu", Position: -1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSections)
}

func TestSummaryRequiresAnalyticsFeature(t *testing.T) {
	svc, _ := newTestService(t)
	seedTraffic(t, svc, "1")

	_, err := svc.Summary(context.Background(), domain.SummaryRequest{RestaurantID: "1"})
	assert.ErrorIs(t, err, tierdomain.ErrFeatureNotAvailable)
}

func TestSummaryTotalsForPremium(t *testing.T) {
	svc, _ := newTestService(t)
	seedTraffic(t, svc, "2")

	sum, err := svc.Summary(context.Background(), domain.SummaryRequest{RestaurantID: "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.PageViews)
	assert.Equal(t, int64(2), sum.UniqueVisitors)
	assert.Equal(t, int64(3), sum.Clicks)
	assert.False(t, sum.Advanced)
	assert.Nil(t, sum.ClicksByType)
	assert.Nil(t, sum.Sections)
	assert.True(t, sum.To.Equal(now))
	assert.True(t, sum.From.Equal(now.Add(-defaultWindow)))
}

func TestSummaryBreakdownForElite(t *testing.T) {
	svc, _ := newTestService(t)
	seedTraffic(t, svc, "3")

	sum, err := svc.Summary(context.Background(), domain.SummaryRequest{RestaurantID: "3"})
	require.NoError(t, err)
	assert.True(t, sum.Advanced)
	assert.Equal(t, int64(2), sum.ClicksByType["menu"])
	assert.Equal(t, int64(1), sum.ClicksByType["phone"])
	assert.Equal(t, int64(0), sum.ClicksByType["share"])
	assert.Len(t, sum.ClicksByType, len(domain.ClickTypes()))
	require.Len(t, sum.Sections, 2)
	assert.Equal(t, "happy hours", sum.Sections[0].Section)
	assert.Equal(t, int64(1), sum.Sections[0].Impressions)
}

func TestSummaryWindow(t *testing.T) {
	svc, clk := newTestService(t)
	seedTraffic(t, svc, "2")
	ctx := context.Background()

	from := now.Add(-30 * time.Minute)
	sum, err := svc.Summary(ctx, domain.SummaryRequest{RestaurantID: "2", From: &from})
	require.NoError(t, err)
	assert.Zero(t, sum.PageViews)

	to := now.Add(-48 * time.Hour)
	_, err = svc.Summary(ctx, domain.SummaryRequest{RestaurantID: "2", From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	far := now.AddDate(-2, 0, 0)
	_, err = svc.Summary(ctx, domain.SummaryRequest{RestaurantID: "2", From: &far})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	clk.Advance(60 * 24 * time.Hour)
	sum, err = svc.Summary(ctx, domain.SummaryRequest{RestaurantID: "2"})
	require.NoError(t, err)
	assert.Zero(t, sum.PageViews)
}

func TestFutureTimestampsUseServerClock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.TrackPageView(ctx, domain.PageViewRequest{
		RestaurantID: "2", VisitorID: "v9", OccurredAt: now.Add(48 * time.Hour),
	}))
	to := now.Add(time.Second)
	sum, err := svc.Summary(ctx, domain.SummaryRequest{RestaurantID: "2", To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.PageViews)
}

func TestRateLimitErrorMatchesSentinel(t *testing.T) {
	var err error = &domain.RateLimitError{Reason: "visitor", RetryAfter: time.Second}
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "visitor")
}
