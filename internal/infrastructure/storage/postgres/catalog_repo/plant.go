package catalog_repo

import (
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const plantsTable = "cat_plants"

// PlantRepo implements plant.Repository.
type PlantRepo struct {
	*BaseCatalogRepo[*plant.Plant]
}

var _ plant.Repository = (*PlantRepo)(nil)

// NewPlantRepo creates a new plant repository.
func NewPlantRepo(txm *postgres.TxManager) *PlantRepo {
	return &PlantRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			plantsTable,
			"plant",
			postgres.ExtractDBColumns[plant.Plant](),
			func() *plant.Plant { return &plant.Plant{} },
		),
	}
}
