package dto

import (
	"github.com/shopspring/decimal"

	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
)

// MaterialRateRequest is one purchase billing rate.
type MaterialRateRequest struct {
	MaterialID string          `json:"materialId" binding:"required"`
	Rate       decimal.Decimal `json:"rate"`
}

// PaletteRatesRequest are the sale billing rates.
type PaletteRatesRequest struct {
	Loose  *decimal.Decimal `json:"loose,omitempty"`
	Packed *decimal.Decimal `json:"packed,omitempty"`
}

// CreateInvoiceRequest represents a request to create an invoice.
// Plain-day endDate values cover the whole day.
type CreateInvoiceRequest struct {
	VendorID      string                `json:"vendorId" binding:"required"`
	PlantID       string                `json:"plantId" binding:"required"`
	InvoiceType   string                `json:"invoiceType" binding:"required,oneof=purchase sale"`
	StartDate     string                `json:"startDate" binding:"required"`
	EndDate       string                `json:"endDate" binding:"required"`
	MaterialRates []MaterialRateRequest `json:"materialRates,omitempty" binding:"omitempty,dive"`
	PaletteRates  *PaletteRatesRequest  `json:"paletteRates,omitempty"`
	Comment       string                `json:"comment,omitempty"`
}

// ToRequest converts the DTO into the domain request.
func (r *CreateInvoiceRequest) ToRequest() (invoice.CreateRequest, error) {
	var req invoice.CreateRequest
	var err error

	if req.VendorID, err = ParseID("vendorId", r.VendorID); err != nil {
		return req, err
	}
	if req.PlantID, err = ParseID("plantId", r.PlantID); err != nil {
		return req, err
	}
	if req.StartDate, err = ParseDate("startDate", r.StartDate, false); err != nil {
		return req, err
	}
	if req.EndDate, err = ParseDate("endDate", r.EndDate, true); err != nil {
		return req, err
	}
	req.InvoiceType = entry.Type(r.InvoiceType)
	req.Comment = r.Comment

	for _, mr := range r.MaterialRates {
		materialID, err := ParseID("materialRates.materialId", mr.MaterialID)
		if err != nil {
			return req, err
		}
		req.MaterialRates = append(req.MaterialRates, invoice.MaterialRate{MaterialID: materialID, Rate: mr.Rate})
	}
	if r.PaletteRates != nil {
		req.PaletteRates = &invoice.PaletteRates{Loose: r.PaletteRates.Loose, Packed: r.PaletteRates.Packed}
	}
	return req, nil
}

// InvoiceListQuery are the query parameters of GET /invoices.
type InvoiceListQuery struct {
	Search         string `form:"search"`
	VendorID       string `form:"vendorId"`
	PlantID        string `form:"plantId"`
	InvoiceType    string `form:"invoiceType" binding:"omitempty,oneof=purchase sale"`
	DateFrom       string `form:"dateFrom"`
	DateTo         string `form:"dateTo"`
	IncludeDeleted bool   `form:"includeDeleted"`
	OrderBy        string `form:"orderBy"`
	Limit          int    `form:"limit"`
	Offset         int    `form:"offset"`
}

// ToFilter converts query to the domain filter.
func (q *InvoiceListQuery) ToFilter() (invoice.ListFilter, error) {
	f := invoice.ListFilter{ListFilter: domain.DefaultListFilter()}
	f.Search = q.Search
	f.IncludeDeleted = q.IncludeDeleted
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	if q.InvoiceType != "" {
		t := entry.Type(q.InvoiceType)
		f.InvoiceType = &t
	}

	var err error
	if f.VendorID, err = ParseOptionalID("vendorId", q.VendorID); err != nil {
		return f, err
	}
	if f.PlantID, err = ParseOptionalID("plantId", q.PlantID); err != nil {
		return f, err
	}
	if f.DateFrom, err = ParseOptionalDate("dateFrom", q.DateFrom, false); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseOptionalDate("dateTo", q.DateTo, true); err != nil {
		return f, err
	}
	return f, nil
}

// FromInvoices maps a list result.
func FromInvoices(res domain.ListResult[*invoice.Invoice]) ListResponse[*invoice.Invoice] {
	items := res.Items
	if items == nil {
		items = []*invoice.Invoice{}
	}
	return ListResponse[*invoice.Invoice]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}
