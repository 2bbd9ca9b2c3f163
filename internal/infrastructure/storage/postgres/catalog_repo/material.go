package catalog_repo

import (
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const materialsTable = "cat_materials"

// MaterialRepo implements material.Repository.
type MaterialRepo struct {
	*BaseCatalogRepo[*material.Material]
}

var _ material.Repository = (*MaterialRepo)(nil)

// NewMaterialRepo creates a new material repository.
func NewMaterialRepo(txm *postgres.TxManager) *MaterialRepo {
	return &MaterialRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			materialsTable,
			"material",
			postgres.ExtractDBColumns[material.Material](),
			func() *material.Material { return &material.Material{} },
		),
	}
}
