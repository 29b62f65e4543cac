package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/auth/password"
	"github.com/tastelanc/backoffice/internal/clock"
	"github.com/tastelanc/backoffice/internal/config"
	"github.com/tastelanc/backoffice/pkg/db"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
	GenID  *snowflake.Node
	Repo   domain.Repository
}

type Service struct {
	log    *zap.Logger
	cfg    config.Config
	clock  clock.Clock
	genID  *snowflake.Node
	repo   domain.Repository
	secret []byte
}

func New(p Params) domain.Service {
	secret := []byte(p.Config.AuthJWTSecret)
	if len(secret) == 0 {
		p.Log.Warn("AUTH_JWT_SECRET is empty; issued tokens are only safe for local development")
		secret = []byte("tastelanc-dev-secret")
	}
	return &Service{
		log:    p.Log.Named("auth.service"),
		cfg:    p.Config,
		clock:  p.Clock,
		genID:  p.GenID,
		repo:   p.Repo,
		secret: secret,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	if len(req.Password) < password.MinLength {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hashed,
		Phone:        optionalString(req.Phone),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	if password.NeedsRehash(user.PasswordHash) {
		s.log.Info("password hash uses outdated parameters", zap.String("user_id", user.ID.String()))
	}

	token, expiresAt, err := signToken(s.secret, user, s.clock.Now(), s.cfg.AuthTokenTTL)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        toResponse(user),
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.UserResponse, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidUserID
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) ListUsers(ctx context.Context, role string) ([]domain.UserResponse, error) {
	var filter domain.Role
	if strings.TrimSpace(role) != "" {
		parsed, ok := domain.ParseRole(role)
		if !ok {
			return nil, domain.ErrInvalidRole
		}
		filter = parsed
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toResponse(&users[i]))
	}
	return out, nil
}

func (s *Service) RegisterPushToken(ctx context.Context, userID, token string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return domain.ErrInvalidUserID
	}
	return s.repo.UpdatePushToken(ctx, id, optionalString(token))
}

func (s *Service) ParseToken(ctx context.Context, token string) (*domain.Claims, error) {
	_ = ctx
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	return parseToken(s.secret, token, s.clock.Now())
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address == "" {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func toResponse(u *domain.User) domain.UserResponse {
	resp := domain.UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
	if u.Phone != nil {
		resp.Phone = *u.Phone
	}
	return resp
}
