package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/authorization"
	"github.com/tastelanc/backoffice/internal/observability/logger"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
)

func (s *Server) GetPayPeriod(c *gin.Context) {
	at, err := s.parseOptionalDate(c.Query("at"))
	if err != nil {
		AbortWithError(c, newValidationError("at", "invalid_at", "invalid at"))
		return
	}
	now := s.clock.Now()
	if at == nil {
		at = &now
	}

	period := s.payrollSvc.ResolvePeriod(*at)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"start":    period.Start.Format(dateOnlyLayout),
		"end":      period.End.Format(dateOnlyLayout),
		"pay_date": period.PayDate.Format(dateOnlyLayout),
	}})
}

type closePayrollRequest struct {
	PeriodStart string `json:"period_start"`
}

func (s *Server) ClosePayrollBatch(c *gin.Context) {
	var req closePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := s.parseOptionalDate(req.PeriodStart)
	if err != nil || start == nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period_start", "invalid period_start"))
		return
	}

	resp, err := s.payrollSvc.CloseBatch(c.Request.Context(), *start)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) ListPayrollBatches(c *gin.Context) {
	resp, err := s.payrollSvc.ListBatches(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetPayrollBatch hides other reps' lines from callers without the
// commission view_all grant.
func (s *Server) GetPayrollBatch(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.payrollSvc.GetBatch(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !s.can(c, authorization.ObjectCommission, authorization.ActionCommissionViewAll) {
		own := make([]payrolldomain.LineResponse, 0, 1)
		for _, line := range resp.Lines {
			if line.RepID == a.ID {
				own = append(own, line)
			}
		}
		resp.Lines = own
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadStatement(c *gin.Context) {
	a, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	repID := strings.TrimSpace(c.Param("rep_id"))
	if repID != a.ID && !s.can(c, authorization.ObjectCommission, authorization.ActionCommissionViewAll) {
		AbortWithError(c, ErrForbidden)
		return
	}

	batchID := strings.TrimSpace(c.Param("id"))
	reader, err := s.payrollSvc.Statement(c.Request.Context(), batchID, repID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s-%s.pdf"`, batchID, repID))
	c.Data(http.StatusOK, "application/pdf", body)
}

// SendStatements reports partial delivery in the body. The batch stays unsent
// until a call delivers every statement.
func (s *Server) SendStatements(c *gin.Context) {
	resp, err := s.payrollSvc.SendStatements(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if resp == nil || len(resp.Failed) == 0 {
			AbortWithError(c, err)
			return
		}
		logger.FromContext(c.Request.Context()).Warn("payroll statements partially sent",
			zap.String("batch_id", resp.BatchID),
			zap.Strings("failed_rep_ids", resp.Failed),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPayrollValidationError(err error) bool {
	switch err {
	case payrolldomain.ErrInvalidBatchID,
		payrolldomain.ErrInvalidRepID:
		return true
	default:
		return false
	}
}
