package handlers

import (
	"github.com/gin-gonic/gin"

	"weighbridge/internal/domain/reports"
	"weighbridge/internal/infrastructure/http/v1/dto"
)

// ReportHandler handles report requests.
type ReportHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, service *reports.Service) *ReportHandler {
	return &ReportHandler{BaseHandler: base, service: service}
}

// EntrySummary handles GET /reports/entry-summary.
func (h *ReportHandler) EntrySummary(c *gin.Context) {
	var q dto.EntrySummaryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.EntrySummary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
