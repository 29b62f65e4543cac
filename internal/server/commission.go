package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/tastelanc/backoffice/internal/authorization"
	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
)

type quoteRequest struct {
	PlanName     string `json:"plan_name"`
	LengthMonths int    `json:"length_months"`
	IsRenewal    bool   `json:"is_renewal"`
	// SignupsInPeriod defaults to the caller's own rolling count, including
	// the quoted sale when it is new.
	SignupsInPeriod *int `json:"signups_in_period"`
}

func (s *Server) QuoteCommission(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signups := 0
	if req.SignupsInPeriod != nil {
		signups = *req.SignupsInPeriod
	} else {
		prior, err := s.commissionSvc.SignupsInWindow(c.Request.Context(), a.ID, s.clock.Now())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		signups = prior
		if !req.IsRenewal {
			signups++
		}
	}

	resp, err := s.commissionSvc.Quote(c.Request.Context(), commissiondomain.QuoteRequest{
		PlanName:        strings.TrimSpace(req.PlanName),
		LengthMonths:    req.LengthMonths,
		IsRenewal:       req.IsRenewal,
		SignupsInPeriod: signups,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordSaleRequest struct {
	RepID        string    `json:"rep_id"`
	RestaurantID string    `json:"restaurant_id"`
	PlanName     string    `json:"plan_name"`
	LengthMonths int       `json:"length_months"`
	IsRenewal    bool      `json:"is_renewal"`
	SoldAt       time.Time `json:"sold_at"`
}

func (s *Server) RecordSale(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	repID := strings.TrimSpace(req.RepID)
	if repID == "" {
		repID = a.ID
	}
	if repID != a.ID && !s.can(c, authorization.ObjectCommission, authorization.ActionCommissionRecordAny) {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.commissionSvc.RecordSale(c.Request.Context(), commissiondomain.RecordSaleRequest{
		RepID:        repID,
		RestaurantID: strings.TrimSpace(req.RestaurantID),
		PlanName:     strings.TrimSpace(req.PlanName),
		LengthMonths: req.LengthMonths,
		IsRenewal:    req.IsRenewal,
		SoldAt:       req.SoldAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCommissionEntries(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		RepID       string `form:"rep_id"`
		PeriodStart string `form:"period_start"`
		From        string `form:"from"`
		To          string `form:"to"`
		Limit       string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	repRaw := strings.TrimSpace(query.RepID)
	if !s.can(c, authorization.ObjectCommission, authorization.ActionCommissionViewAll) {
		if repRaw != "" && repRaw != a.ID {
			AbortWithError(c, ErrForbidden)
			return
		}
		repRaw = a.ID
	}

	req := commissiondomain.ListEntriesRequest{}
	if repRaw != "" {
		repID, err := snowflake.ParseString(repRaw)
		if err != nil || repID == 0 {
			AbortWithError(c, commissiondomain.ErrInvalidRep)
			return
		}
		v := repID.Int64()
		req.RepID = &v
	}

	periodStart, err := s.parseOptionalDate(query.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period_start", "invalid period_start"))
		return
	}
	req.PeriodStart = periodStart

	req.From, err = parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	req.To, err = parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	if raw := strings.TrimSpace(query.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		req.Limit = limit
	}

	resp, err := s.commissionSvc.ListEntries(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCommissionValidationError(err error) bool {
	switch err {
	case commissiondomain.ErrInvalidRep,
		commissiondomain.ErrInvalidRestaurant,
		commissiondomain.ErrInvalidPlan,
		commissiondomain.ErrInvalidLength,
		commissiondomain.ErrInvalidSignups:
		return true
	default:
		return false
	}
}
