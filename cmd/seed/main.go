// Package main provides a CLI tool for seeding the database with demo
// catalogs and printing development access tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"weighbridge/internal/config"
	"weighbridge/internal/core/apperror"
	appctx "weighbridge/internal/core/context"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/auth"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/infrastructure/storage/postgres"
	"weighbridge/internal/infrastructure/storage/postgres/catalog_repo"
	"weighbridge/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional)")
	tokens := flag.Bool("tokens", true, "print development tokens for each role")
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.App.Storage != config.StoragePostgres {
		log.Fatal("seeding requires postgres storage")
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to migrate", "error", err)
	}

	// No surrounding transaction: a duplicate would abort it.
	if err := seedCatalogs(ctx, postgres.NewTxManager(pool)); err != nil {
		log.Fatalw("failed to seed catalogs", "error", err)
	}
	log.Info("demo catalogs seeded")

	if *tokens {
		printTokens(cfg)
	}
}

// seedCatalogs inserts a small demo set. Rows that already exist are kept.
func seedCatalogs(ctx context.Context, txm *postgres.TxManager) error {
	plants := catalog_repo.NewPlantRepo(txm)
	vendors := catalog_repo.NewVendorRepo(txm)
	vehicles := catalog_repo.NewVehicleRepo(txm)
	materials := catalog_repo.NewMaterialRepo(txm)

	north := plant.NewPlant("NORTH", "North crushing plant")
	north.Location = "Survey 112, Ring Road"
	south := plant.NewPlant("SOUTH", "South packing plant")
	for _, p := range []*plant.Plant{north, south} {
		if err := skipDuplicate(ctx, "plant", p.Code, plants.Create(ctx, p)); err != nil {
			return err
		}
	}

	demoVendors := []*vendor.Vendor{
		vendor.NewVendor("V-ACME", "Acme Minerals", north.ID),
		vendor.NewVendor("V-BUILD", "BuildRight Traders", north.ID, south.ID),
	}
	for _, v := range demoVendors {
		if err := skipDuplicate(ctx, "vendor", v.Code, vendors.Create(ctx, v)); err != nil {
			return err
		}
	}

	// One truck with a known tare, one that learns it at its first exit.
	tipper := vehicle.NewVehicle("KA-01-AB-1234", "Tipper")
	tipper.TareWeight = types.Ptr(types.Kg(8200))
	trailer := vehicle.NewVehicle("KA-05-CD-9876", "Trailer")
	for _, v := range []*vehicle.Vehicle{tipper, trailer} {
		if err := skipDuplicate(ctx, "vehicle", v.Code, vehicles.Create(ctx, v)); err != nil {
			return err
		}
	}

	for _, m := range []*material.Material{
		material.NewMaterial("LIME", "Limestone"),
		material.NewMaterial("COAL", "Coal"),
		material.NewMaterial("GYPSUM", "Gypsum"),
	} {
		if err := skipDuplicate(ctx, "material", m.Code, materials.Create(ctx, m)); err != nil {
			return err
		}
	}
	return nil
}

func skipDuplicate(ctx context.Context, kind, code string, err error) error {
	if apperror.HasCode(err, apperror.CodeDuplicate) {
		logger.Info(ctx, "already seeded", "kind", kind, "code", code)
		return nil
	}
	return err
}

func printTokens(cfg config.Config) {
	svc := auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret))
	for _, role := range []string{auth.RoleOperator, auth.RoleSupervisor, auth.RoleAccountant} {
		token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
			UserID: "demo-" + role,
			Roles:  []string{role},
		})
		if err != nil {
			fmt.Printf("%s: %v\n", role, err)
			continue
		}
		fmt.Printf("%-10s expires %s\n%s\n\n", role, expiresAt.Format("2006-01-02 15:04"), token)
	}
}
