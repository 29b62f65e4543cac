package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	restaurantdomain "github.com/tastelanc/backoffice/internal/restaurant/domain"
	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

type createRestaurantRequest struct {
	Name       string `json:"name"`
	Tier       string `json:"tier"`
	OwnerEmail string `json:"owner_email"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Address    string `json:"address"`
}

func (s *Server) CreateRestaurant(c *gin.Context) {
	var req createRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.restaurantSvc.Create(c.Request.Context(), restaurantdomain.CreateRequest{
		Name:       strings.TrimSpace(req.Name),
		Tier:       strings.TrimSpace(req.Tier),
		OwnerEmail: strings.TrimSpace(req.OwnerEmail),
		Phone:      strings.TrimSpace(req.Phone),
		Website:    strings.TrimSpace(req.Website),
		Address:    strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRestaurants(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Tier string `form:"tier"`
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.restaurantSvc.List(c.Request.Context(), restaurantdomain.ListRequest{
		Pagination: query.Pagination,
		Tier:       strings.TrimSpace(query.Tier),
		Name:       strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetRestaurant(c *gin.Context) {
	resp, err := s.restaurantSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("restaurant_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRestaurantAccess(c *gin.Context) {
	resp, err := s.tierSvc.Access(c.Request.Context(), strings.TrimSpace(c.Param("restaurant_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type changeTierRequest struct {
	Tier      string     `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) ChangeRestaurantTier(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req changeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.restaurantSvc.ChangeTier(c.Request.Context(), restaurantdomain.ChangeTierRequest{
		RestaurantID: strings.TrimSpace(c.Param("restaurant_id")),
		Tier:         strings.TrimSpace(req.Tier),
		ExpiresAt:    req.ExpiresAt,
		Source:       restaurantdomain.SourceAdmin,
		ActorID:      a.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTierChanges(c *gin.Context) {
	resp, err := s.restaurantSvc.ListTierChanges(c.Request.Context(), strings.TrimSpace(c.Param("restaurant_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRestaurantValidationError(err error) bool {
	switch err {
	case restaurantdomain.ErrInvalidID,
		restaurantdomain.ErrInvalidName,
		restaurantdomain.ErrInvalidExpiry,
		restaurantdomain.ErrInvalidPageToken,
		tierdomain.ErrInvalidTier,
		tierdomain.ErrUnknownFeature:
		return true
	default:
		return false
	}
}
