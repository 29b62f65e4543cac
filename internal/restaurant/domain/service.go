package domain

import (
	"context"
	"errors"
	"time"

	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	ChangeTier(ctx context.Context, req ChangeTierRequest) (*Response, error)
	ListTierChanges(ctx context.Context, id string) ([]TierChangeResponse, error)
}

type CreateRequest struct {
	Name       string `json:"name"`
	Tier       string `json:"tier"`
	OwnerEmail string `json:"owner_email"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Address    string `json:"address"`
}

type ListRequest struct {
	pagination.Pagination
	Tier string `form:"tier"`
	Name string `form:"name"`
}

type ChangeTierRequest struct {
	RestaurantID string     `json:"-"`
	Tier         string     `json:"tier"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Source       string     `json:"-"`
	ActorID      string     `json:"-"`
}

type Response struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Tier          string     `json:"tier"`
	TierExpiresAt *time.Time `json:"tier_expires_at,omitempty"`
	OwnerEmail    *string    `json:"owner_email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Website       *string    `json:"website,omitempty"`
	Address       *string    `json:"address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ListResponse struct {
	Data     []Response          `json:"data"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type TierChangeResponse struct {
	ID        string    `json:"id"`
	FromTier  string    `json:"from_tier"`
	ToTier    string    `json:"to_tier"`
	Source    string    `json:"source"`
	ActorID   *string   `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TierChangedPayload is the body of the tier.changed event.
type TierChangedPayload struct {
	RestaurantID string     `json:"restaurant_id"`
	FromTier     string     `json:"from_tier"`
	ToTier       string     `json:"to_tier"`
	Source       string     `json:"source"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

var (
	ErrInvalidID        = errors.New("invalid_restaurant_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidExpiry    = errors.New("invalid_expires_at")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("restaurant_not_found")
)
