package entity

import (
	"context"
	"time"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
)

// Document is the base type for business transactions: weighbridge entries and invoices.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional operator comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID dated now.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// CanModify checks that the document has not been soft-deleted.
func (d *Document) CanModify() error {
	if !d.IsActive {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Cannot modify a deleted document.",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}
