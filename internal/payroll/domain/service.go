package domain

import (
	"context"
	"errors"
	"io"
	"time"

	payperioddomain "github.com/tastelanc/backoffice/internal/payperiod/domain"
)

type Service interface {
	ResolvePeriod(t time.Time) payperioddomain.PayPeriod
	CloseBatch(ctx context.Context, periodStart time.Time) (*CloseResult, error)
	GetBatch(ctx context.Context, id string) (*BatchResponse, error)
	ListBatches(ctx context.Context) ([]BatchResponse, error)
	Statement(ctx context.Context, batchID, repID string) (io.Reader, error)
	SendStatements(ctx context.Context, batchID string) (*SendResult, error)
}

type CloseResult struct {
	Batch   BatchResponse `json:"batch"`
	Created bool          `json:"created"`
}

type BatchResponse struct {
	ID               string         `json:"id"`
	PeriodStart      time.Time      `json:"period_start"`
	PeriodEnd        time.Time      `json:"period_end"`
	PayDate          time.Time      `json:"pay_date"`
	EntryCount       int            `json:"entry_count"`
	TotalAmount      int64          `json:"total_amount"`
	ClosedAt         time.Time      `json:"closed_at"`
	StatementsSentAt *time.Time     `json:"statements_sent_at,omitempty"`
	Lines            []LineResponse `json:"lines,omitempty"`
}

type LineResponse struct {
	RepID    string `json:"rep_id"`
	NewSales int    `json:"new_sales"`
	Renewals int    `json:"renewals"`
	Amount   int64  `json:"amount"`
}

type SendResult struct {
	BatchID string   `json:"batch_id"`
	Sent    int      `json:"sent"`
	Failed  []string `json:"failed_rep_ids,omitempty"`
}

// ClosedPayload is the body of the payroll.closed event.
type ClosedPayload struct {
	BatchID     string    `json:"batch_id"`
	PeriodStart time.Time `json:"period_start"`
	PayDate     time.Time `json:"pay_date"`
	EntryCount  int       `json:"entry_count"`
	TotalAmount int64     `json:"total_amount"`
}

var (
	ErrInvalidBatchID        = errors.New("invalid_batch_id")
	ErrInvalidRepID          = errors.New("invalid_rep_id")
	ErrBatchNotFound         = errors.New("payroll_batch_not_found")
	ErrLineNotFound          = errors.New("payroll_line_not_found")
	ErrPeriodOpen            = errors.New("invalid_period_still_open")
	ErrStatementsAlreadySent = errors.New("payroll_statements_already_sent")
)
