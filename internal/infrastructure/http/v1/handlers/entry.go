package handlers

import (
	"github.com/gin-gonic/gin"

	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/infrastructure/http/v1/dto"
)

// EntryHandler handles HTTP requests for weighbridge entries.
type EntryHandler struct {
	*BaseHandler
	service *entry.Service
}

// NewEntryHandler creates a new entry handler.
func NewEntryHandler(base *BaseHandler, service *entry.Service) *EntryHandler {
	return &EntryHandler{BaseHandler: base, service: service}
}

// Create handles POST /entries.
func (h *EntryHandler) Create(c *gin.Context) {
	var req dto.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromEntry(e))
}

// Get handles GET /entries/:id.
func (h *EntryHandler) Get(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}

	e, err := h.service.GetByID(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEntry(e))
}

// List handles GET /entries.
func (h *EntryHandler) List(c *gin.Context) {
	var q dto.EntryListQuery
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
	h.OK(c, dto.FromEntries(result))
}

// Update handles PATCH /entries/:id.
func (h *EntryHandler) Update(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		h.Error(c, err)
		return
	}

	e, err := h.service.Update(c.Request.Context(), entryID, patch)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEntry(e))
}

// Delete handles DELETE /entries/:id.
func (h *EntryHandler) Delete(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), entryID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RecordExitWeight handles POST /entries/:id/exit-weight.
func (h *EntryHandler) RecordExitWeight(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ExitWeightRequest
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := h.service.RecordExitWeight(c.Request.Context(), entryID, req.ToReading())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEntry(e))
}

// Review handles POST /entries/:id/review.
func (h *EntryHandler) Review(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := h.service.Review(c.Request.Context(), entryID, req.IsReviewed(), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEntry(e))
}

// Flag handles POST /entries/:id/flag.
func (h *EntryHandler) Flag(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.FlagRequest
	if !h.BindJSON(c, &req) {
		return
	}

	e, err := h.service.Flag(c.Request.Context(), entryID, req.Flagged, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEntry(e))
}
