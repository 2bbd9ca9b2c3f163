package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
)

// PlantRepo implements plant.Repository.
type PlantRepo struct{ s *Store }

// Plants returns the plant repository.
func (s *Store) Plants() *PlantRepo { return &PlantRepo{s} }

func (r *PlantRepo) GetByID(_ context.Context, plantID id.ID) (*plant.Plant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.plants[plantID]
	if !ok {
		return nil, apperror.NewNotFound("plant", plantID.String())
	}
	cp := *p
	return &cp, nil
}

// VendorRepo implements vendor.Repository.
type VendorRepo struct{ s *Store }

// Vendors returns the vendor repository.
func (s *Store) Vendors() *VendorRepo { return &VendorRepo{s} }

func (r *VendorRepo) GetByID(_ context.Context, vendorID id.ID) (*vendor.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vendors[vendorID]
	if !ok {
		return nil, apperror.NewNotFound("vendor", vendorID.String())
	}
	cp := *v
	return &cp, nil
}

// VehicleRepo implements vehicle.Repository.
type VehicleRepo struct{ s *Store }

// Vehicles returns the vehicle repository.
func (s *Store) Vehicles() *VehicleRepo { return &VehicleRepo{s} }

func (r *VehicleRepo) GetByID(_ context.Context, vehicleID id.ID) (*vehicle.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[vehicleID]
	if !ok {
		return nil, apperror.NewNotFound("vehicle", vehicleID.String())
	}
	cp := *v
	return &cp, nil
}

func (r *VehicleRepo) SetTareIfAbsent(_ context.Context, vehicleID id.ID, tare decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[vehicleID]
	if !ok {
		return decimal.Zero, apperror.NewNotFound("vehicle", vehicleID.String())
	}
	if v.TareWeight != nil {
		return *v.TareWeight, nil
	}
	cp := *v
	cp.TareWeight = types.Ptr(tare)
	r.s.vehicles[vehicleID] = &cp
	return tare, nil
}

// MaterialRepo implements material.Repository.
type MaterialRepo struct{ s *Store }

// Materials returns the material repository.
func (s *Store) Materials() *MaterialRepo { return &MaterialRepo{s} }

func (r *MaterialRepo) GetByID(_ context.Context, materialID id.ID) (*material.Material, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.materials[materialID]
	if !ok {
		return nil, apperror.NewNotFound("material", materialID.String())
	}
	cp := *m
	return &cp, nil
}

func (r *MaterialRepo) GetByIDs(_ context.Context, ids []id.ID) ([]*material.Material, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*material.Material, 0, len(ids))
	for _, materialID := range ids {
		if m, ok := r.s.materials[materialID]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

var (
	_ plant.Repository    = (*PlantRepo)(nil)
	_ vendor.Repository   = (*VendorRepo)(nil)
	_ vehicle.Repository  = (*VehicleRepo)(nil)
	_ material.Repository = (*MaterialRepo)(nil)
)
