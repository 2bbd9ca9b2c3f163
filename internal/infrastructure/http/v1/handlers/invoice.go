package handlers

import (
	"github.com/gin-gonic/gin"

	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for vendor invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Create handles POST /invoices.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var body dto.CreateInvoiceRequest
	if !h.BindJSON(c, &body) {
		return
	}
	req, err := body.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, inv)
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.PathID(c)
	if !ok {
		return
	}
	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoices(result))
}

// Delete handles DELETE /invoices/:id. Claimed entries become billable again.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), invoiceID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Recompute handles POST /invoices/:id/recompute.
func (h *InvoiceHandler) Recompute(c *gin.Context) {
	invoiceID, ok := h.PathID(c)
	if !ok {
		return
	}
	inv, err := h.service.Recompute(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}
