// Package vehicle provides the Vehicle catalog.
// A vehicle's tare weight is learned from its first recorded exit weight
// and reused for every later reconciliation.
package vehicle

import (
	"context"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/entity"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
)

// Vehicle represents a truck crossing the weighbridge.
// Code holds the registration number.
type Vehicle struct {
	entity.Catalog

	// TareWeight is the empty weight in kg; nil until first learned
	TareWeight *decimal.Decimal `db:"tare_weight" json:"tareWeight,omitempty"`
}

// NewVehicle creates a new Vehicle with unknown tare.
func NewVehicle(registration, name string) *Vehicle {
	return &Vehicle{Catalog: entity.NewCatalog(registration, name)}
}

// HasTare reports whether a tare weight has been recorded.
func (v *Vehicle) HasTare() bool {
	return v.TareWeight != nil
}

// Validate implements entity.Validatable interface.
func (v *Vehicle) Validate(ctx context.Context) error {
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}
	if v.TareWeight != nil && v.TareWeight.IsNegative() {
		return apperror.NewValidation("tare weight cannot be negative").
			WithDetail("field", "tareWeight")
	}
	return nil
}

// Repository is the vehicle lookup. Apart from tare seeding vehicles are read-only here.
type Repository interface {
	domain.CatalogReader[*Vehicle]

	// SetTareIfAbsent stores tare only when the vehicle has none and returns
	// the tare in effect afterwards. A concurrent seed that landed first wins.
	SetTareIfAbsent(ctx context.Context, vehicleID id.ID, tare decimal.Decimal) (decimal.Decimal, error)
}
