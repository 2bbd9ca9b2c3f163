package catalog_repo

import (
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const vendorsTable = "cat_vendors"

// VendorRepo implements vendor.Repository.
type VendorRepo struct {
	*BaseCatalogRepo[*vendor.Vendor]
}

var _ vendor.Repository = (*VendorRepo)(nil)

// NewVendorRepo creates a new vendor repository.
func NewVendorRepo(txm *postgres.TxManager) *VendorRepo {
	return &VendorRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			vendorsTable,
			"vendor",
			postgres.ExtractDBColumns[vendor.Vendor](),
			func() *vendor.Vendor { return &vendor.Vendor{} },
		),
	}
}
