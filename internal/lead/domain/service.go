package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
	Claim(ctx context.Context, req ClaimRequest) (*Response, error)
	Assign(ctx context.Context, req AssignRequest) (*Response, error)
	Sweep(ctx context.Context) (*SweepResult, error)
}

type CreateRequest struct {
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
	OwnerID      string `json:"owner_id"`
	RestaurantID string `json:"restaurant_id"`
}

type ListRequest struct {
	pagination.Pagination
	OwnerID    string `form:"owner_id"`
	Unassigned bool   `form:"unassigned"`
	Status     string `form:"status"`
}

type UpdateStatusRequest struct {
	ID     string  `json:"-"`
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type ClaimRequest struct {
	LeadID string `json:"-"`
	RepID  string `json:"-"`
}

type AssignRequest struct {
	LeadID  string `json:"-"`
	OwnerID string `json:"owner_id"`
}

type Response struct {
	ID             string         `json:"id"`
	BusinessName   string         `json:"business_name"`
	ContactName    *string        `json:"contact_name,omitempty"`
	Email          *string        `json:"email,omitempty"`
	Phone          *string        `json:"phone,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Status         string         `json:"status"`
	OwnerID        *string        `json:"owner_id,omitempty"`
	RestaurantID   *string        `json:"restaurant_id,omitempty"`
	LastNudgedAt   *time.Time     `json:"last_nudged_at,omitempty"`
	StaleSince     *time.Time     `json:"stale_since,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
	Classification Classification `json:"classification"`
}

type ListResponse struct {
	Data     []Response          `json:"data"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type SweepResult struct {
	Scanned     int `json:"scanned"`
	Nudged      int `json:"nudged"`
	MarkedStale int `json:"marked_stale"`
}

// StalePayload is the body of the lead.stale event.
type StalePayload struct {
	LeadID          string `json:"lead_id"`
	OwnerID         string `json:"owner_id"`
	BusinessName    string `json:"business_name"`
	DaysSinceUpdate int    `json:"days_since_update"`
}

// ClaimedPayload is the body of the lead.claimed event.
type ClaimedPayload struct {
	LeadID        string `json:"lead_id"`
	PreviousOwner string `json:"previous_owner_id,omitempty"`
	NewOwner      string `json:"owner_id"`
	WasStale      bool   `json:"was_stale"`
}

var (
	ErrInvalidID           = errors.New("invalid_lead_id")
	ErrInvalidBusinessName = errors.New("invalid_business_name")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidOwner        = errors.New("invalid_owner_id")
	ErrInvalidRestaurant   = errors.New("invalid_restaurant_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("lead_not_found")
	ErrLeadNotClaimable    = errors.New("lead_not_claimable")
)

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
