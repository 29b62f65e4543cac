package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePayrollStatement(t *testing.T) {
	provider := New()
	r, err := provider.GeneratePayrollStatement(context.Background(), StatementData{
		RepName:     "Jordan Reyes",
		RepEmail:    "jordan@tastelanc.com",
		PeriodStart: "2026-10-11",
		PeriodEnd:   "2026-10-17",
		PayDate:     "2026-10-23",
		BatchID:     "1",
		Lines: []StatementLine{
			{SoldAt: "2026-10-12", Restaurant: "Lancaster Brewing", Plan: "Premium 3mo", Kind: "new", Tier: "standard", Amount: "$38"},
			{SoldAt: "2026-10-14", Restaurant: "Luca", Plan: "Elite 12mo", Kind: "renewal", Tier: "standard", Amount: "$83"},
		},
		NewSales: 1,
		Renewals: 1,
		Total:    "$121",
	})
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, len(body) > 4)
	assert.Equal(t, "%PDF", string(body[:4]))
}

func TestGeneratePayrollStatementRequiresRep(t *testing.T) {
	_, err := New().GeneratePayrollStatement(context.Background(), StatementData{})
	assert.ErrorIs(t, err, ErrEmptyStatement)
}
