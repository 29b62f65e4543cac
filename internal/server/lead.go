package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tastelanc/backoffice/internal/authorization"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	"github.com/tastelanc/backoffice/pkg/db/pagination"
)

type createLeadRequest struct {
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
	OwnerID      string `json:"owner_id"`
	RestaurantID string `json:"restaurant_id"`
}

func (s *Server) CreateLead(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(req.OwnerID)
	canAssign := s.can(c, authorization.ObjectLead, authorization.ActionLeadAssign)
	switch {
	case ownerID == "" && !canAssign:
		ownerID = a.ID
	case ownerID != "" && ownerID != a.ID && !canAssign:
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.leadSvc.Create(c.Request.Context(), leaddomain.CreateRequest{
		BusinessName: strings.TrimSpace(req.BusinessName),
		ContactName:  strings.TrimSpace(req.ContactName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Notes:        strings.TrimSpace(req.Notes),
		OwnerID:      ownerID,
		RestaurantID: strings.TrimSpace(req.RestaurantID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// ListLeads shows reps their own pipeline, or the unassigned pool with
// unassigned=true. Managers see everything.
func (s *Server) ListLeads(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		pagination.Pagination
		OwnerID    string `form:"owner_id"`
		Unassigned bool   `form:"unassigned"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(query.OwnerID)
	if !s.can(c, authorization.ObjectLead, authorization.ActionLeadViewAll) {
		if ownerID != "" && ownerID != a.ID {
			AbortWithError(c, ErrForbidden)
			return
		}
		if !query.Unassigned {
			ownerID = a.ID
		}
	}

	resp, err := s.leadSvc.List(c.Request.Context(), leaddomain.ListRequest{
		Pagination: query.Pagination,
		OwnerID:    ownerID,
		Unassigned: query.Unassigned,
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetLead(c *gin.Context) {
	resp, err := s.visibleLead(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLeadStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (s *Server) UpdateLeadStatus(c *gin.Context) {
	var req updateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	current, err := s.visibleLead(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	a, _ := actorFromContext(c)
	if !s.can(c, authorization.ObjectLead, authorization.ActionLeadViewAll) &&
		(current.OwnerID == nil || *current.OwnerID != a.ID) {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.leadSvc.UpdateStatus(c.Request.Context(), leaddomain.UpdateStatusRequest{
		ID:     current.ID,
		Status: strings.TrimSpace(req.Status),
		Notes:  req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClaimLead(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.leadSvc.Claim(c.Request.Context(), leaddomain.ClaimRequest{
		LeadID: strings.TrimSpace(c.Param("id")),
		RepID:  a.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type assignLeadRequest struct {
	OwnerID string `json:"owner_id"`
}

func (s *Server) AssignLead(c *gin.Context) {
	var req assignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.leadSvc.Assign(c.Request.Context(), leaddomain.AssignRequest{
		LeadID:  strings.TrimSpace(c.Param("id")),
		OwnerID: strings.TrimSpace(req.OwnerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SweepLeads(c *gin.Context) {
	resp, err := s.leadSvc.Sweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// visibleLead loads the lead named in the path. Reps may see leads they own,
// unassigned leads, and stale leads they could claim.
func (s *Server) visibleLead(c *gin.Context) (*leaddomain.Response, error) {
	a, ok := actorFromContext(c)
	if !ok {
		return nil, ErrUnauthorized
	}

	resp, err := s.leadSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return nil, err
	}
	if s.can(c, authorization.ObjectLead, authorization.ActionLeadViewAll) {
		return resp, nil
	}
	if resp.OwnerID == nil || *resp.OwnerID == a.ID || resp.Classification.IsStale {
		return resp, nil
	}
	return nil, leaddomain.ErrNotFound
}

func isLeadValidationError(err error) bool {
	switch err {
	case leaddomain.ErrInvalidID,
		leaddomain.ErrInvalidBusinessName,
		leaddomain.ErrInvalidStatus,
		leaddomain.ErrInvalidOwner,
		leaddomain.ErrInvalidRestaurant,
		leaddomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}
