package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	analyticsdomain "github.com/tastelanc/backoffice/internal/analytics/domain"
	"github.com/tastelanc/backoffice/internal/authorization"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{nil, http.StatusInternalServerError, "internal_error"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
		{fmt.Errorf("claim: %w", leaddomain.ErrLeadNotClaimable), http.StatusConflict, "lead_not_claimable"},
		{payrolldomain.ErrPeriodOpen, http.StatusConflict, "period_open"},
		{commissiondomain.ErrPeriodClosed, http.StatusConflict, "period_closed"},
		{tierdomain.ErrFeatureNotAvailable, http.StatusForbidden, "feature_not_available"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{commissiondomain.ErrUnknownPlan, http.StatusUnprocessableEntity, "unknown_plan"},
		{analyticsdomain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{ErrInvalidRequest, http.StatusBadRequest, "validation_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
		assert.Equal(t, tc.typ, payload.Type, "%v", tc.err)
	}
}

func TestSentinelValidationError(t *testing.T) {
	assert.Equal(t,
		ValidationError{Field: "business_name", Code: "invalid_business_name", Message: "invalid value"},
		sentinelValidationError(leaddomain.ErrInvalidBusinessName))
	assert.Equal(t,
		ValidationError{Field: "request", Code: "invalid_request", Message: "invalid request"},
		sentinelValidationError(fmt.Errorf("decode: %w", ErrInvalidRequest)))

	typ, code := classifyErrorForLog(leaddomain.ErrInvalidStatus)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_status", code)
}
