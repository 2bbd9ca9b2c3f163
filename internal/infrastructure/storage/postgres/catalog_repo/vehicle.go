package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/infrastructure/storage/postgres"
)

const vehiclesTable = "cat_vehicles"

// VehicleRepo implements vehicle.Repository.
type VehicleRepo struct {
	*BaseCatalogRepo[*vehicle.Vehicle]
}

var _ vehicle.Repository = (*VehicleRepo)(nil)

// NewVehicleRepo creates a new vehicle repository.
func NewVehicleRepo(txm *postgres.TxManager) *VehicleRepo {
	return &VehicleRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			vehiclesTable,
			"vehicle",
			postgres.ExtractDBColumns[vehicle.Vehicle](),
			func() *vehicle.Vehicle { return &vehicle.Vehicle{} },
		),
	}
}

// setTareQuery keeps an existing tare: the first writer wins and every
// caller reads back the tare actually stored.
func (r *VehicleRepo) setTareQuery(vehicleID id.ID, tare decimal.Decimal) squirrel.UpdateBuilder {
	return r.Builder().
		Update(r.tableName).
		Set("tare_weight", squirrel.Expr("COALESCE(tare_weight, ?)", tare)).
		Where(squirrel.Eq{"id": vehicleID}).
		Suffix("RETURNING tare_weight")
}

// SetTareIfAbsent implements vehicle.Repository.
func (r *VehicleRepo) SetTareIfAbsent(ctx context.Context, vehicleID id.ID, tare decimal.Decimal) (decimal.Decimal, error) {
	sql, args, err := r.setTareQuery(vehicleID, tare).ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("build tare update: %w", err)
	}

	var stored decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&stored); err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, apperror.NewNotFound("vehicle", vehicleID.String())
		}
		return decimal.Zero, fmt.Errorf("set tare: %w", err)
	}
	return stored, nil
}
