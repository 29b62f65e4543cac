package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRoleGrants(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "sales_rep", "1", ObjectLead, ActionLeadClaim))
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_rep", "1", ObjectLead, ActionLeadViewAll), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_rep", "1", ObjectPayroll, ActionPayrollClose), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, "sales_manager", "2", ObjectLead, ActionLeadViewAll))
	assert.NoError(t, svc.Authorize(ctx, "sales_manager", "2", ObjectLead, ActionLeadClaim), "managers inherit rep grants")
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_manager", "2", ObjectRestaurant, ActionRestaurantChangeTier), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, "admin", "3", ObjectPayroll, ActionPayrollClose))
	assert.NoError(t, svc.Authorize(ctx, "ADMIN", "3", ObjectLead, ActionLeadCreate))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "1", ObjectLead, ActionLeadView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_rep", " ", ObjectLead, ActionLeadView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_rep", "1", "", ActionLeadView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "sales_rep", "1", ObjectLead, ""), ErrInvalidAction)
	assert.ErrorIs(t, svc.Authorize(ctx, "owner", "1", ObjectLead, ActionLeadView), ErrForbidden)
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range policies {
		key := p[0] + "|" + p[1] + "|" + p[2]
		assert.False(t, seen[key], "duplicate policy %s", key)
		seen[key] = true
	}
	svc := NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
	assert.True(t, svc.Allowed("admin", ObjectUser, ActionUserCreate))
}
