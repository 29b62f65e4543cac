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

	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/events"
	"github.com/tastelanc/backoffice/internal/events/mocks"
	"github.com/tastelanc/backoffice/internal/restaurant/domain"
	"github.com/tastelanc/backoffice/internal/restaurant/repository"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

type fixture struct {
	svc       domain.Service
	clock     *clock.FakeClock
	publisher *mocks.MockPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	conn := dbtest.Open(t, &domain.Restaurant{}, &domain.TierChange{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	pub := mocks.NewMockPublisher(ctrl)

	return fixture{
		svc: New(Params{
			DB:        conn,
			Log:       zap.NewNop(),
			Clock:     clk,
			GenID:     node,
			Repo:      repository.Provide(),
			Publisher: pub,
		}),
		clock:     clk,
		publisher: pub,
	}
}

func TestCreateAssignsUniqueSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, domain.CreateRequest{Name: "Lancaster Brewing Co."})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, domain.CreateRequest{Name: "Lancaster Brewing Co"})
	require.NoError(t, err)

	assert.Equal(t, "lancaster-brewing-co", first.Slug)
	assert.Equal(t, "lancaster-brewing-co-2", second.Slug)
	assert.Equal(t, "basic", first.Tier)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = f.svc.Create(ctx, domain.CreateRequest{Name: "Luca", Tier: "gold"})
	assert.ErrorIs(t, err, tierdomain.ErrInvalidTier)
}

func TestChangeTierRecordsHistoryAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateRequest{Name: "Luca"})
	require.NoError(t, err)

	var published events.Event
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt events.Event) error {
		published = evt
		return nil
	}).Times(1)

	expires := f.clock.Now().AddDate(0, 3, 0)
	updated, err := f.svc.ChangeTier(ctx, domain.ChangeTierRequest{
		RestaurantID: created.ID,
		Tier:         "Premium",
		ExpiresAt:    &expires,
		ActorID:      "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "premium", updated.Tier)
	assert.Equal(t, events.TypeTierChanged, published.Type)
	assert.Equal(t, created.ID, published.Key)

	// Same tier again only refreshes the expiry.
	_, err = f.svc.ChangeTier(ctx, domain.ChangeTierRequest{RestaurantID: created.ID, Tier: "premium"})
	require.NoError(t, err)

	history, err := f.svc.ListTierChanges(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "basic", history[0].FromTier)
	assert.Equal(t, "premium", history[0].ToTier)
	assert.Equal(t, domain.SourceAdmin, history[0].Source)
}

func TestChangeTierValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, domain.CreateRequest{Name: "Luca"})
	require.NoError(t, err)

	_, err = f.svc.ChangeTier(ctx, domain.ChangeTierRequest{RestaurantID: created.ID, Tier: "platinum"})
	assert.ErrorIs(t, err, tierdomain.ErrInvalidTier)

	past := f.clock.Now().Add(-time.Hour)
	_, err = f.svc.ChangeTier(ctx, domain.ChangeTierRequest{RestaurantID: created.ID, Tier: "elite", ExpiresAt: &past})
	assert.ErrorIs(t, err, domain.ErrInvalidExpiry)

	_, err = f.svc.ChangeTier(ctx, domain.ChangeTierRequest{RestaurantID: "999", Tier: "elite"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		_, err := f.svc.Create(ctx, domain.CreateRequest{Name: name})
		require.NoError(t, err)
	}

	req := domain.ListRequest{}
	req.PageSize = 2
	page, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.True(t, page.PageInfo.HasMore)
	assert.Equal(t, "C", page.Data[0].Name)

	req.PageToken = page.PageInfo.NextPageToken
	page, err = f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "A", page.Data[0].Name)
	assert.False(t, page.PageInfo.HasMore)
}

func TestEffectiveTierFallsBackAfterExpiry(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	r := domain.Restaurant{Tier: tierdomain.TierElite, TierExpiresAt: &expired}
	assert.Equal(t, tierdomain.TierBasic, r.EffectiveTier(now))

	r.TierExpiresAt = nil
	assert.Equal(t, tierdomain.TierElite, r.EffectiveTier(now))
}
