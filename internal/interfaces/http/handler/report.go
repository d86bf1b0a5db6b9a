package handler

import (
	"context"
	"time"

	reportapp "github.com/erp/storesync/internal/application/report"
	"github.com/erp/storesync/internal/domain/report"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RevenueReporter aggregates organization revenue in one currency
type RevenueReporter interface {
	AggregateRevenue(ctx context.Context, orgID uuid.UUID, target valueobject.Currency, period *report.DateRange) (*report.RevenueAggregate, error)
}

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	BaseHandler
	reporter RevenueReporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reporter RevenueReporter) *ReportHandler {
	return &ReportHandler{reporter: reporter}
}

// Revenue godoc
// @ID           getRevenueReport
// @Summary      Organization revenue
// @Description  Sums order revenue converted to one currency, defaulting to the organization's reporting currency. Groups whose exchange rate is unavailable are added unconverted and the report is flagged as degraded.
// @Tags         reports
// @Produce      json
// @Param        organizationId query string true "Organization ID" format(uuid)
// @Param        currency query string false "Target ISO 4217 currency" example(EUR)
// @Param        from query string false "Start, RFC 3339 or YYYY-MM-DD"
// @Param        to query string false "End, RFC 3339 or YYYY-MM-DD (whole day)"
// @Success      200 {object} APIResponse[reportapp.RevenueResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /reports/revenue [get]
func (h *ReportHandler) Revenue(c *gin.Context) {
	var req reportapp.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	orgID := uuid.MustParse(req.OrganizationID)

	var target valueobject.Currency
	if req.Currency != "" {
		cur, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			h.BadRequest(c, "Invalid currency code")
			return
		}
		target = cur
	}

	period := &report.DateRange{}
	var err error
	if period.From, err = parseReportTime(req.From, false); err != nil {
		h.BadRequest(c, "Invalid from date")
		return
	}
	if period.To, err = parseReportTime(req.To, true); err != nil {
		h.BadRequest(c, "Invalid to date")
		return
	}

	agg, err := h.reporter.AggregateRevenue(c.Request.Context(), orgID, target, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reportapp.ToRevenueResponse(agg))
}

// parseReportTime accepts RFC 3339 timestamps and plain dates. The range end
// is exclusive, so a plain date used as the end moves to the next midnight.
func parseReportTime(raw string, end bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
