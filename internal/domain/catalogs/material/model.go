// Package material provides the Material catalog (raw materials bought by weight).
package material

import (
	"context"

	"weighbridge/internal/core/entity"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
)

// Material represents a purchasable raw material.
type Material struct {
	entity.Catalog

	// Unit is the billing unit label (kg by default)
	Unit string `db:"unit" json:"unit"`
}

// NewMaterial creates a new Material billed per kilogram.
func NewMaterial(code, name string) *Material {
	return &Material{
		Catalog: entity.NewCatalog(code, name),
		Unit:    "kg",
	}
}

// Validate implements entity.Validatable interface.
func (m *Material) Validate(ctx context.Context) error {
	return m.Catalog.Validate(ctx)
}

// Repository is the read-only material lookup.
type Repository interface {
	domain.CatalogReader[*Material]

	// GetByIDs returns the materials found among ids; missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Material, error)
}
