package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	analyticsdomain "github.com/tastelanc/backoffice/internal/analytics/domain"
	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/authorization"
	billingdomain "github.com/tastelanc/backoffice/internal/billing/domain"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// errorRule maps a set of sentinels to one response. Rules are checked in
// order, so the more specific 403 and 409 types sit above the generic ones.
type errorRule struct {
	status  int
	typ     string
	message string
	matches []error
}

var errorRules = []errorRule{
	{http.StatusUnauthorized, "unauthorized", "unauthorized", []error{
		ErrUnauthorized, authdomain.ErrInvalidCredentials, authdomain.ErrInvalidToken, authdomain.ErrUserInactive,
	}},
	{http.StatusForbidden, "feature_not_available", "the restaurant's tier does not include this feature", []error{
		tierdomain.ErrFeatureNotAvailable,
	}},
	{http.StatusForbidden, "forbidden", "forbidden", []error{
		ErrForbidden, authorization.ErrForbidden,
	}},
	{http.StatusConflict, "lead_not_claimable", "lead is owned by another rep and is not stale", []error{
		leaddomain.ErrLeadNotClaimable,
	}},
	{http.StatusConflict, "statements_already_sent", "statements for this batch were already sent", []error{
		payrolldomain.ErrStatementsAlreadySent,
	}},
	{http.StatusConflict, "period_open", "pay period has not ended", []error{
		payrolldomain.ErrPeriodOpen,
	}},
	{http.StatusConflict, "period_closed", "payroll for this pay period is already closed", []error{
		commissiondomain.ErrPeriodClosed,
	}},
	{http.StatusConflict, "conflict", "conflict", []error{
		authdomain.ErrUserExists,
	}},
	{http.StatusUnprocessableEntity, "unknown_plan", "no pricing option for this plan and length", []error{
		commissiondomain.ErrUnknownPlan,
	}},
	{http.StatusTooManyRequests, "rate_limited", "too many requests", []error{
		analyticsdomain.ErrRateLimited,
	}},
	{http.StatusNotFound, "not_found", "not found", []error{
		ErrNotFound,
		authdomain.ErrUserNotFound,
		restaurantdomain.ErrNotFound,
		leaddomain.ErrNotFound,
		payrolldomain.ErrBatchNotFound,
		payrolldomain.ErrLineNotFound,
		billingdomain.ErrSessionNotFound,
		gorm.ErrRecordNotFound,
	}},
	{http.StatusServiceUnavailable, "service_unavailable", "service unavailable", []error{
		billingdomain.ErrNotConfigured,
	}},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var rl *analyticsdomain.RateLimitError
		if errors.As(last.Err, &rl) && rl.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		}

		status, payload := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &vErr) && vErr != nil:
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: "validation error", Errors: vErr.Errors}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  []ValidationError{sentinelValidationError(err)},
		}
	default:
		for _, rule := range errorRules {
			for _, target := range rule.matches {
				if errors.Is(err, target) {
					return rule.status, errorPayload{Type: rule.typ, Message: rule.message}
				}
			}
		}
	}
	return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
}

// classifyErrorForLog returns the response type and a stable code for the
// request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if payload.Type == "validation_error" && len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		isAuthValidationError(err) ||
		isRestaurantValidationError(err) ||
		isCommissionValidationError(err) ||
		isLeadValidationError(err) ||
		isPayrollValidationError(err) ||
		isAnalyticsValidationError(err) ||
		isBillingValidationError(err)
}

// sentinelValidationError turns an "invalid_<field>" sentinel into a field
// error. The code is the sentinel text.
func sentinelValidationError(err error) ValidationError {
	code := err.Error()
	if errors.Is(err, ErrInvalidRequest) {
		code = ErrInvalidRequest.Error()
	}

	field := strings.TrimPrefix(code, "invalid_")
	if field == code {
		field = ""
	}
	message := "invalid value"
	switch code {
	case "invalid_request":
		field, message = "request", "invalid request"
	case "invalid_webhook_signature":
		message = "webhook signature verification failed"
	}
	return ValidationError{Field: field, Code: code, Message: message}
}
