package main

import (
	"context"
	"fmt"

	"weighbridge/internal/config"
	"weighbridge/internal/core/tx"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/infrastructure/http/v1/handlers"
	"weighbridge/internal/infrastructure/numerator"
	"weighbridge/internal/infrastructure/storage/memory"
	"weighbridge/internal/infrastructure/storage/postgres"
	"weighbridge/internal/infrastructure/storage/postgres/catalog_repo"
	"weighbridge/internal/infrastructure/storage/postgres/document_repo"
	"weighbridge/pkg/logger"
)

// storage groups the repositories of one backend.
type storage struct {
	txm       tx.Manager
	entries   entry.Repository
	invoices  invoice.Repository
	plants    plant.Repository
	vendors   vendor.Repository
	vehicles  vehicle.Repository
	materials material.Repository
	counters  numerator.Store
	checks    map[string]handlers.ReadinessCheck
	close     func()
}

// Close releases backend resources.
func (s *storage) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	if cfg.App.Storage == config.StorageMemory {
		logger.Warn(ctx, "using in-memory storage; data is lost on restart and catalogs start empty")
		store := memory.NewStore()
		return &storage{
			txm:       memory.NewTxManager(store),
			entries:   store.Entries(),
			invoices:  store.Invoices(),
			plants:    store.Plants(),
			vendors:   store.Vendors(),
			vehicles:  store.Vehicles(),
			materials: store.Materials(),
			counters:  numerator.NewMemoryStore(),
			checks:    map[string]handlers.ReadinessCheck{},
		}, nil
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolCfg.MinConns = cfg.Database.MinConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.LogStats(ctx)

	txm := postgres.NewTxManager(pool)
	entries := document_repo.NewEntryRepo(txm)

	// Counter increments join the caller's transaction when there is one.

	return &storage{
		txm:       txm,
		entries:   entries,
		invoices:  document_repo.NewInvoiceRepo(txm, entries),
		plants:    catalog_repo.NewPlantRepo(txm),
		vendors:   catalog_repo.NewVendorRepo(txm),
		vehicles:  catalog_repo.NewVehicleRepo(txm),
		materials: catalog_repo.NewMaterialRepo(txm),
		counters:  numerator.NewPostgresStore(txm.Conn()),
		checks:    map[string]handlers.ReadinessCheck{"database": pool.Ready},
		close:     pool.Close,
	}, nil
}
