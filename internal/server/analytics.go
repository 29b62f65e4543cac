package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	analyticsdomain "github.com/tastelanc/backoffice/internal/analytics/domain"
)

// The consumer site posts these without a token. The visitor id is an
// anonymous per-device identifier chosen by the client.

func (s *Server) TrackPageView(c *gin.Context) {
	var req analyticsdomain.PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.analyticsSvc.TrackPageView(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) TrackClick(c *gin.Context) {
	var req analyticsdomain.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.analyticsSvc.TrackClick(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) TrackImpressions(c *gin.Context) {
	var req analyticsdomain.ImpressionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.analyticsSvc.TrackImpressions(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) AnalyticsSummary(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.analyticsSvc.Summary(c.Request.Context(), analyticsdomain.SummaryRequest{
		RestaurantID: strings.TrimSpace(c.Param("restaurant_id")),
		From:         from,
		To:           to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAnalyticsValidationError(err error) bool {
	switch err {
	case analyticsdomain.ErrInvalidRestaurant,
		analyticsdomain.ErrInvalidVisitor,
		analyticsdomain.ErrInvalidClickType,
		analyticsdomain.ErrInvalidSections,
		analyticsdomain.ErrInvalidRange:
		return true
	default:
		return false
	}
}
