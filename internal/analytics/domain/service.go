package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Service interface {
	TrackPageView(ctx context.Context, req PageViewRequest) error
	TrackClick(ctx context.Context, req ClickRequest) error
	TrackImpressions(ctx context.Context, req ImpressionsRequest) error
	Summary(ctx context.Context, req SummaryRequest) (*Summary, error)
}

type PageViewRequest struct {
	RestaurantID string    `json:"restaurant_id"`
	VisitorID    string    `json:"visitor_id"`
	Path         string    `json:"path"`
	Referrer     string    `json:"referrer"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type ClickRequest struct {
	RestaurantID string    `json:"restaurant_id"`
	VisitorID    string    `json:"visitor_id"`
	ClickType    string    `json:"click_type"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type SectionRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type ImpressionsRequest struct {
	RestaurantID string           `json:"restaurant_id"`
	VisitorID    string           `json:"visitor_id"`
	Sections     []SectionRequest `json:"sections"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

type SummaryRequest struct {
	RestaurantID string
	From         *time.Time
	To           *time.Time
}

// Summary reports traffic for one restaurant. Breakdown fields are only
// filled for tiers with advanced analytics.
type Summary struct {
	RestaurantID   string           `json:"restaurant_id"`
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	PageViews      int64            `json:"page_views"`
	UniqueVisitors int64            `json:"unique_visitors"`
	Clicks         int64            `json:"clicks"`
	Advanced       bool             `json:"advanced"`
	ClicksByType   map[string]int64 `json:"clicks_by_type,omitempty"`
	Sections       []SectionStat    `json:"sections,omitempty"`
}

var (
	ErrInvalidRestaurant = errors.New("invalid_restaurant_id")
	ErrInvalidVisitor    = errors.New("invalid_visitor_id")
	ErrInvalidClickType  = errors.New("invalid_click_type")
	ErrInvalidSections   = errors.New("invalid_sections")
	ErrInvalidRange      = errors.New("invalid_range")
	ErrRateLimited       = errors.New("rate_limited")
)

// RateLimitError is returned when ingest is throttled. It matches
// ErrRateLimited with errors.Is.
type RateLimitError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s bucket", e.Reason)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
