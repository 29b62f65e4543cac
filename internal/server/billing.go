package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/tastelanc/backoffice/internal/billing/domain"
)

const maxWebhookBodyBytes = 64 << 10

type createCheckoutRequest struct {
	Tier         string `json:"tier"`
	LengthMonths int    `json:"length_months"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.CreateCheckout(c.Request.Context(), billingdomain.CreateCheckoutRequest{
		RestaurantID: strings.TrimSpace(c.Param("restaurant_id")),
		Tier:         strings.TrimSpace(req.Tier),
		LengthMonths: req.LengthMonths,
		ActorID:      a.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// StripeWebhook needs the untouched body for signature verification.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isBillingValidationError(err error) bool {
	switch err {
	case billingdomain.ErrInvalidTier,
		billingdomain.ErrInvalidLength,
		billingdomain.ErrInvalidSignature,
		billingdomain.ErrInvalidWebhookEvent:
		return true
	default:
		return false
	}
}
