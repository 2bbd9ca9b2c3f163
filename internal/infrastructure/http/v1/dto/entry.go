package dto

import (
	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
)

// --- Request DTOs ---

// CreateEntryRequest opens a weighbridge entry at the entry weighing.
type CreateEntryRequest struct {
	Number       string           `json:"number,omitempty"`
	EntryDate    string           `json:"entryDate,omitempty"`
	EntryType    string           `json:"entryType" binding:"required,oneof=purchase sale"`
	VendorID     string           `json:"vendorId" binding:"required"`
	VehicleID    string           `json:"vehicleId" binding:"required"`
	PlantID      string           `json:"plantId" binding:"required"`
	MaterialID   string           `json:"materialId,omitempty"`
	EntryWeight  decimal.Decimal  `json:"entryWeight"`
	Moisture     *decimal.Decimal `json:"moisture,omitempty"`
	Dust         *decimal.Decimal `json:"dust,omitempty"`
	PaletteType  *string          `json:"paletteType,omitempty"`
	NoOfBags     *int             `json:"noOfBags,omitempty"`
	WeightPerBag *decimal.Decimal `json:"weightPerBag,omitempty"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Comment      string           `json:"comment,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateEntryRequest) ToEntity() (*entry.Entry, error) {
	vendorID, err := ParseID("vendorId", r.VendorID)
	if err != nil {
		return nil, err
	}
	vehicleID, err := ParseID("vehicleId", r.VehicleID)
	if err != nil {
		return nil, err
	}
	plantID, err := ParseID("plantId", r.PlantID)
	if err != nil {
		return nil, err
	}
	materialID, err := ParseOptionalID("materialId", r.MaterialID)
	if err != nil {
		return nil, err
	}

	e := entry.NewEntry(entry.Type(r.EntryType), vendorID, vehicleID, plantID, r.EntryWeight)
	e.Number = r.Number
	e.MaterialID = materialID
	e.Moisture = r.Moisture
	e.Dust = r.Dust
	e.NoOfBags = r.NoOfBags
	e.WeightPerBag = r.WeightPerBag
	e.Comment = r.Comment
	if r.PaletteType != nil {
		pt := entry.PaletteType(*r.PaletteType)
		e.PaletteType = &pt
	}
	if r.Rate != nil {
		e.Rate = *r.Rate
	}
	if r.EntryDate != "" {
		date, err := ParseDate("entryDate", r.EntryDate, false)
		if err != nil {
			return nil, err
		}
		e.Date = date
	}
	return e, nil
}

// UpdateEntryRequest is a remediation edit. The exit weight cannot be edited.
type UpdateEntryRequest struct {
	EntryDate    *string          `json:"entryDate,omitempty"`
	EntryWeight  *decimal.Decimal `json:"entryWeight,omitempty"`
	MaterialID   *string          `json:"materialId,omitempty"`
	Moisture     *decimal.Decimal `json:"moisture,omitempty"`
	Dust         *decimal.Decimal `json:"dust,omitempty"`
	PaletteType  *string          `json:"paletteType,omitempty"`
	NoOfBags     *int             `json:"noOfBags,omitempty"`
	WeightPerBag *decimal.Decimal `json:"weightPerBag,omitempty"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Comment      *string          `json:"comment,omitempty"`
	VarianceFlag *bool            `json:"varianceFlag,omitempty"`

	// ExitWeight is accepted only to be rejected with a clear message.
	ExitWeight *decimal.Decimal `json:"exitWeight,omitempty"`
}

// ToPatch converts request to a domain patch.
func (r *UpdateEntryRequest) ToPatch() (entry.Patch, error) {
	if r.ExitWeight != nil {
		return entry.Patch{}, apperror.NewValidation("exitWeight is recorded once via the exit-weight endpoint").
			WithDetail("field", "exitWeight")
	}

	p := entry.Patch{
		EntryWeight:  r.EntryWeight,
		Moisture:     r.Moisture,
		Dust:         r.Dust,
		NoOfBags:     r.NoOfBags,
		WeightPerBag: r.WeightPerBag,
		Rate:         r.Rate,
		Comment:      r.Comment,
		VarianceFlag: r.VarianceFlag,
	}
	if r.EntryDate != nil {
		date, err := ParseDate("entryDate", *r.EntryDate, false)
		if err != nil {
			return entry.Patch{}, err
		}
		p.EntryDate = &date
	}
	if r.MaterialID != nil {
		materialID, err := ParseID("materialId", *r.MaterialID)
		if err != nil {
			return entry.Patch{}, err
		}
		p.MaterialID = &materialID
	}
	if r.PaletteType != nil {
		pt := entry.PaletteType(*r.PaletteType)
		p.PaletteType = &pt
	}
	return p, nil
}

// ExitWeightRequest records the exit weighing.
type ExitWeightRequest struct {
	ExitWeight   decimal.Decimal  `json:"exitWeight"`
	PaletteType  *string          `json:"paletteType,omitempty"`
	NoOfBags     *int             `json:"noOfBags,omitempty"`
	WeightPerBag *decimal.Decimal `json:"weightPerBag,omitempty"`
	Moisture     *decimal.Decimal `json:"moisture,omitempty"`
	Dust         *decimal.Decimal `json:"dust,omitempty"`
}

// ToReading converts request to the domain exit reading.
func (r *ExitWeightRequest) ToReading() entry.ExitReading {
	reading := entry.ExitReading{
		ExitWeight:   r.ExitWeight,
		NoOfBags:     r.NoOfBags,
		WeightPerBag: r.WeightPerBag,
		Moisture:     r.Moisture,
		Dust:         r.Dust,
	}
	if r.PaletteType != nil {
		pt := entry.PaletteType(*r.PaletteType)
		reading.PaletteType = &pt
	}
	return reading
}

// ReviewRequest marks an entry reviewed. Omitting reviewed means true.
type ReviewRequest struct {
	Reviewed *bool  `json:"reviewed,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// IsReviewed resolves the default.
func (r *ReviewRequest) IsReviewed() bool {
	return r.Reviewed == nil || *r.Reviewed
}

// FlagRequest sets or clears the invoicing block.
type FlagRequest struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// EntryListQuery are the query parameters of GET /entries.
type EntryListQuery struct {
	Search         string `form:"search"`
	PlantID        string `form:"plantId"`
	VendorID       string `form:"vendorId"`
	VehicleID      string `form:"vehicleId"`
	MaterialID     string `form:"materialId"`
	EntryType      string `form:"entryType" binding:"omitempty,oneof=purchase sale"`
	DateFrom       string `form:"dateFrom"`
	DateTo         string `form:"dateTo"`
	Flagged        *bool  `form:"flagged"`
	Reviewed       *bool  `form:"reviewed"`
	Variance       *bool  `form:"variance"`
	IncludeDeleted bool   `form:"includeDeleted"`
	OrderBy        string `form:"orderBy"`
	Limit          int    `form:"limit"`
	Offset         int    `form:"offset"`
}

// ToFilter converts query to the domain filter.
func (q *EntryListQuery) ToFilter() (entry.ListFilter, error) {
	f := entry.ListFilter{ListFilter: domain.DefaultListFilter()}
	f.Search = q.Search
	f.IncludeDeleted = q.IncludeDeleted
	f.Flagged = q.Flagged
	f.Reviewed = q.Reviewed
	f.Variance = q.Variance
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	if q.EntryType != "" {
		t := entry.Type(q.EntryType)
		f.EntryType = &t
	}

	refs := []struct {
		field string
		raw   string
		dst   **id.ID
	}{
		{"plantId", q.PlantID, &f.PlantID},
		{"vendorId", q.VendorID, &f.VendorID},
		{"vehicleId", q.VehicleID, &f.VehicleID},
		{"materialId", q.MaterialID, &f.MaterialID},
	}
	for _, r := range refs {
		parsed, err := ParseOptionalID(r.field, r.raw)
		if err != nil {
			return f, err
		}
		*r.dst = parsed
	}

	var err error
	if f.DateFrom, err = ParseOptionalDate("dateFrom", q.DateFrom, false); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseOptionalDate("dateTo", q.DateTo, true); err != nil {
		return f, err
	}
	return f, nil
}

// --- Response DTOs ---

// EntryResponse is an entry with its derived lifecycle state.
type EntryResponse struct {
	*entry.Entry
	State entry.State `json:"state"`
}

// FromEntry creates response from entity.
func FromEntry(e *entry.Entry) EntryResponse {
	return EntryResponse{Entry: e, State: e.State()}
}

// FromEntries maps a list result.
func FromEntries(res domain.ListResult[*entry.Entry]) ListResponse[EntryResponse] {
	items := make([]EntryResponse, len(res.Items))
	for i, e := range res.Items {
		items[i] = FromEntry(e)
	}
	return ListResponse[EntryResponse]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}
