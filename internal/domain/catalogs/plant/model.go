// Package plant provides the Plant catalog.
// A plant is a site operating one or more weighbridges.
package plant

import (
	"context"

	"weighbridge/internal/core/entity"
	"weighbridge/internal/domain"
)

// Plant represents a weighing site.
type Plant struct {
	entity.Catalog

	// Location is a free-form address
	Location string `db:"location" json:"location,omitempty"`
}

// NewPlant creates a new Plant with required fields.
func NewPlant(code, name string) *Plant {
	return &Plant{Catalog: entity.NewCatalog(code, name)}
}

// Repository is the read-only plant lookup.
type Repository interface {
	domain.CatalogReader[*Plant]
}

// Validate implements entity.Validatable interface.
func (p *Plant) Validate(ctx context.Context) error {
	return p.Catalog.Validate(ctx)
}

