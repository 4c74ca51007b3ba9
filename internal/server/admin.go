package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/autobill/internal/invoice/domain"
	"go.uber.org/zap"
)

type acceptedResponse struct {
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
}

func (s *Server) accept(c *gin.Context, operation, target string, fn func(ctx context.Context) error) {
	if !s.background.Go(c.Request.Context(), operation, fn) {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": acceptedResponse{Operation: operation, Target: target}})
}

// TriggerAutoBilling starts a full billing run for ?date=YYYY-MM-DD, or today.
func (s *Server) TriggerAutoBilling(c *gin.Context) {
	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	}
	runDate := s.clock.Now()
	if date != nil {
		runDate = *date
	}

	s.accept(c, "auto_billing", runDate.Format(dateOnlyLayout), func(ctx context.Context) error {
		report, err := s.billingSvc.RunForDate(ctx, runDate)
		if err != nil {
			return err
		}
		s.log.Info("admin.auto_billing.report",
			zap.String("run_id", report.RunID),
			zap.Int("batches", len(report.Batches)),
			zap.Int("swept", report.Swept),
		)
		return nil
	})
}

// BillByStatus charges every invoice currently in :status.
func (s *Server) BillByStatus(c *gin.Context) {
	status, err := parseStatusParam(c.Param("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if status.Terminal() {
		AbortWithError(c, invoicedomain.ErrInvalidStatus)
		return
	}

	s.accept(c, "bill_by_status", string(status), func(ctx context.Context) error {
		_, err := s.billingSvc.ChargeAll(ctx, status)
		return err
	})
}

// BillInvoice charges one invoice.
func (s *Server) BillInvoice(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoice, err := s.invoiceSvc.Fetch(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if invoice.Status.Terminal() {
		AbortWithError(c, invoicedomain.ErrInvalidStatus)
		return
	}

	s.accept(c, "bill_invoice", id.String(), func(ctx context.Context) error {
		_, err := s.billingSvc.ChargeOne(ctx, id)
		return err
	})
}

// MarkAsPermanentFail moves every invoice in the failed :status to PERMANENT_FAIL.
func (s *Server) MarkAsPermanentFail(c *gin.Context) {
	status, err := parseStatusParam(c.Param("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !status.Failed() {
		AbortWithError(c, invoicedomain.ErrInvalidStatus)
		return
	}

	s.accept(c, "mark_permanent_fail", string(status), func(ctx context.Context) error {
		swept, err := s.billingSvc.SweepPermanentFailures(ctx, status)
		if err != nil {
			return err
		}
		s.log.Info("admin.mark_permanent_fail.report", zap.String("status", string(status)), zap.Int("swept", swept))
		return nil
	})
}

// UpdateInvoiceStatus overwrites an invoice status.
func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	status, err := parseStatusParam(c.Param("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invoiceSvc.UpdateStatus(c.Request.Context(), id, status); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
