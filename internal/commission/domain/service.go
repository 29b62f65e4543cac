package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	RecordSale(ctx context.Context, req RecordSaleRequest) (*EntryResponse, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]EntryResponse, error)
	SignupsInWindow(ctx context.Context, repID string, at time.Time) (int, error)
}

type QuoteRequest struct {
	PlanName        string `json:"plan_name"`
	LengthMonths    int    `json:"length_months"`
	IsRenewal       bool   `json:"is_renewal"`
	SignupsInPeriod int    `json:"signups_in_period"`
}

type Quote struct {
	PlanName        string         `json:"plan_name"`
	LengthMonths    int            `json:"length_months"`
	IsRenewal       bool           `json:"is_renewal"`
	SignupsInPeriod int            `json:"signups_in_period"`
	Tier            CommissionTier `json:"tier"`
	Amount          int64          `json:"amount"`
	Matched         bool           `json:"matched"`
}

type RecordSaleRequest struct {
	RepID        string    `json:"rep_id"`
	RestaurantID string    `json:"restaurant_id"`
	PlanName     string    `json:"plan_name"`
	LengthMonths int       `json:"length_months"`
	IsRenewal    bool      `json:"is_renewal"`
	SoldAt       time.Time `json:"sold_at"`
}

type ListEntriesRequest struct {
	RepID       *int64
	PeriodStart *time.Time
	From        *time.Time
	To          *time.Time
	Limit       int
}

type EntryResponse struct {
	ID              string    `json:"id"`
	RepID           string    `json:"rep_id"`
	RestaurantID    string    `json:"restaurant_id"`
	PlanName        string    `json:"plan_name"`
	LengthMonths    int       `json:"length_months"`
	IsRenewal       bool      `json:"is_renewal"`
	SignupsInWindow int       `json:"signups_in_window"`
	Tier            string    `json:"tier"`
	Amount          int64     `json:"amount"`
	SoldAt          time.Time `json:"sold_at"`
	PeriodStart     time.Time `json:"period_start"`
	CreatedAt       time.Time `json:"created_at"`
}

var (
	ErrInvalidRep        = errors.New("invalid_rep_id")
	ErrInvalidRestaurant = errors.New("invalid_restaurant_id")
	ErrInvalidPlan       = errors.New("invalid_plan_name")
	ErrInvalidLength     = errors.New("invalid_length_months")
	ErrInvalidSignups    = errors.New("invalid_signups_in_period")
	ErrInvalidSoldAt     = errors.New("invalid_sold_at")
	ErrUnknownPlan       = errors.New("unknown_plan")
	ErrPeriodClosed      = errors.New("period_closed")
)

// RecordedPayload is the body of the commission.recorded event.
type RecordedPayload struct {
	EntryID      string    `json:"entry_id"`
	RepID        string    `json:"rep_id"`
	RestaurantID string    `json:"restaurant_id"`
	PlanName     string    `json:"plan_name"`
	LengthMonths int       `json:"length_months"`
	IsRenewal    bool      `json:"is_renewal"`
	Tier         string    `json:"tier"`
	Amount       int64     `json:"amount"`
	SoldAt       time.Time `json:"sold_at"`
	PeriodStart  time.Time `json:"period_start"`
}
