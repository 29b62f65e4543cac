package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/auth/repository"
	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/pkg/db/dbtest"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.Open(t, &domain.User{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Log:    zap.NewNop(),
		Config: config.Config{AuthJWTSecret: "test-secret", AuthTokenTTL: time.Hour},
		Clock:  clk,
		GenID:  node,
		Repo:   repository.New(conn),
	})
	return svc, clk
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]struct {
		req  domain.CreateUserRequest
		want error
	}{
		"bad email":      {domain.CreateUserRequest{Email: "nope", Name: "A", Role: "sales_rep", Password: "long-enough-pw"}, domain.ErrInvalidEmail},
		"missing name":   {domain.CreateUserRequest{Email: "a@b.co", Role: "sales_rep", Password: "long-enough-pw"}, domain.ErrInvalidName},
		"unknown role":   {domain.CreateUserRequest{Email: "a@b.co", Name: "A", Role: "owner", Password: "long-enough-pw"}, domain.ErrInvalidRole},
		"short password": {domain.CreateUserRequest{Email: "a@b.co", Name: "A", Role: "sales_rep", Password: "short"}, domain.ErrInvalidPassword},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := domain.CreateUserRequest{Email: "Rep@TasteLanc.com", Name: "Rep", Role: "Sales_Rep", Password: "long-enough-pw"}
	created, err := svc.CreateUser(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "rep@tastelanc.com", created.Email)
	assert.Equal(t, domain.RoleSalesRep, created.Role)

	req.Email = "rep@tastelanc.com"
	_, err = svc.CreateUser(ctx, req)
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email: "manager@tastelanc.com", Name: "Manager", Role: "sales_manager", Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "manager@tastelanc.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, domain.LoginRequest{Email: "nobody@tastelanc.com", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	resp, err := svc.Login(ctx, domain.LoginRequest{Email: " Manager@tastelanc.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, clk.Now().Add(time.Hour), resp.ExpiresAt)

	claims, err := svc.ParseToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, domain.RoleSalesManager, claims.Role)

	clk.Advance(time.Hour)
	_, err = svc.ParseToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	svc, clk := newTestService(t)
	user := &domain.User{ID: 42, Role: domain.RoleAdmin}

	forged, _, err := signToken([]byte("other-secret"), user, clk.Now(), time.Hour)
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = svc.ParseToken(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRegisterPushToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email: "rep2@tastelanc.com", Name: "Rep Two", Role: "sales_rep", Password: "long-enough-pw",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RegisterPushToken(ctx, created.ID, "fcm-token"))
	assert.ErrorIs(t, svc.RegisterPushToken(ctx, "123", "fcm-token"), domain.ErrUserNotFound)
	assert.ErrorIs(t, svc.RegisterPushToken(ctx, "abc", "fcm-token"), domain.ErrInvalidUserID)

	users, err := svc.ListUsers(ctx, "sales_rep")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
