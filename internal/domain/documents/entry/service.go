package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/cache"
	appctx "weighbridge/internal/core/context"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/numerator"
	"weighbridge/internal/core/tx"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/weighing"
	"weighbridge/pkg/logger"
)

// ServiceConfig wires the entry service.
type ServiceConfig struct {
	Repo      Repository
	Vehicles  vehicle.Repository
	Vendors   vendor.Repository
	Plants    plant.Repository
	Materials material.Repository
	Numerator numerator.Generator
	TxManager tx.Manager

	// NumeratorStrategy defaults to DefaultNumeratorStrategy.
	NumeratorStrategy *numerator.Strategy

	// Cache is optional; nil disables read-through caching.
	Cache    cache.Store
	CacheTTL time.Duration

	// Tolerance defaults to weighing.DefaultTolerance.
	Tolerance *decimal.Decimal
}

// Service owns the entry lifecycle: creation, the one-time exit weighing,
// review, flagging, gated edits and soft deletion.
type Service struct {
	repo      Repository
	vehicles  vehicle.Repository
	vendors   vendor.Repository
	plants    plant.Repository
	materials material.Repository
	numerator numerator.Generator
	strategy  numerator.Strategy
	txManager tx.Manager
	cache     cache.Store
	cacheTTL  time.Duration
	tolerance decimal.Decimal
	hooks     *domain.HookRegistry[*Entry]
	now       func() time.Time
}

// NewService creates a new entry service.
func NewService(cfg ServiceConfig) *Service {
	strategy := DefaultNumeratorStrategy
	if cfg.NumeratorStrategy != nil {
		strategy = *cfg.NumeratorStrategy
	}
	tolerance := weighing.DefaultTolerance
	if cfg.Tolerance != nil {
		tolerance = *cfg.Tolerance
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		repo:      cfg.Repo,
		vehicles:  cfg.Vehicles,
		vendors:   cfg.Vendors,
		plants:    cfg.Plants,
		materials: cfg.Materials,
		numerator: cfg.Numerator,
		strategy:  strategy,
		txManager: cfg.TxManager,
		cache:     cfg.Cache,
		cacheTTL:  ttl,
		tolerance: tolerance,
		hooks:     domain.NewHookRegistry[*Entry](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Entry] {
	return s.hooks
}

// Tolerance returns the variance tolerance in kg.
func (s *Service) Tolerance() decimal.Decimal {
	return s.tolerance
}

// Create validates references and stores a new open entry.
func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := s.hooks.RunBeforeCreate(ctx, e); err != nil {
		return err
	}

	// An entry is born open whatever the caller sent.
	e.ExitWeight, e.ExitRecordedAt = nil, nil
	e.IsReviewed, e.ReviewedBy, e.ReviewedAt = false, nil, nil
	e.Flagged, e.FlagReason = false, ""
	e.ManualWeight = false
	e.CreatedBy = appctx.GetUserID(ctx)
	e.UpdatedBy = e.CreatedBy

	if err := e.Validate(ctx); err != nil {
		return err
	}

	veh, err := s.checkReferences(ctx, e)
	if err != nil {
		return err
	}
	if err := e.Recalculate(veh.TareWeight, s.tolerance); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if e.Number == "" {
			cfg := numerator.DefaultConfig(NumberPrefix)
			number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: s.strategy}, e.Date)
			if err != nil {
				return err
			}
			e.Number = number
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.runAfter(ctx, domain.AfterCreate, e)

	logger.Info(ctx, "entry created",
		"id", e.ID,
		"number", e.Number,
		"type", e.EntryType)

	return nil
}

// RecordExitWeight records the exit reading exactly once and settles the entry.
// A vehicle without a tare learns it from this reading first.
func (s *Service) RecordExitWeight(ctx context.Context, entryID id.ID, reading ExitReading) (*Entry, error) {
	if !reading.ExitWeight.IsPositive() {
		return nil, apperror.NewValidation("exitWeight must be positive").
			WithDetail("field", "exitWeight")
	}

	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := e.CanModify(); err != nil {
			return err
		}
		if e.HasExitWeight() {
			return apperror.NewAlreadyRecorded("exitWeight", entryID.String())
		}

		veh, err := s.vehicles.GetByID(ctx, e.VehicleID)
		if err != nil {
			return err
		}
		tare := veh.TareWeight
		if seed := weighing.TareToSeed(veh.TareWeight, &reading.ExitWeight); seed != nil {
			effective, err := s.vehicles.SetTareIfAbsent(ctx, veh.ID, *seed)
			if err != nil {
				return fmt.Errorf("seed tare: %w", err)
			}
			tare = types.Ptr(effective)
			logger.Info(ctx, "vehicle tare learned",
				"vehicle_id", veh.ID,
				"tare", effective.String())
		}

		reading.apply(e)
		if err := e.Recalculate(tare, s.tolerance); err != nil {
			return err
		}
		if err := e.Validate(ctx); err != nil {
			return err
		}

		now := s.now()
		e.ExitRecordedAt = &now
		e.UpdatedBy = appctx.GetUserID(ctx)

		return s.repo.RecordExit(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.runAfter(ctx, domain.AfterUpdate, e)

	logger.Info(ctx, "exit weight recorded",
		"id", e.ID,
		"number", e.Number,
		"exact_weight", types.Deref(e.ExactWeight).String(),
		"variance", e.HasVariance())

	return e, nil
}

// Review marks or unmarks an entry as reviewed. A flagged entry must be
// unflagged first, and only settled entries can be reviewed.
func (s *Service) Review(ctx context.Context, entryID id.ID, reviewed bool, notes string) (*Entry, error) {
	return s.mutate(ctx, entryID, func(e *Entry) error {
		if reviewed {
			if e.Flagged {
				return apperror.NewInvariantViolation("flagged entry must be unflagged before review").
					WithDetail("id", entryID.String())
			}
			if !e.HasExitWeight() {
				return apperror.NewInvariantViolation("exit weight must be recorded before review").
					WithDetail("id", entryID.String())
			}
			now := s.now()
			user := appctx.GetUserID(ctx)
			e.IsReviewed = true
			e.ReviewedBy = &user
			e.ReviewedAt = &now
			e.ReviewNotes = notes
			return nil
		}

		e.IsReviewed = false
		e.ReviewedBy = nil
		e.ReviewedAt = nil
		e.ReviewNotes = notes
		return nil
	})
}

// Flag sets or clears the flag that blocks invoicing. Independent of review.
func (s *Service) Flag(ctx context.Context, entryID id.ID, flagged bool, reason string) (*Entry, error) {
	return s.mutate(ctx, entryID, func(e *Entry) error {
		e.Flagged = flagged
		if flagged {
			e.FlagReason = reason
		} else {
			e.FlagReason = ""
		}
		return nil
	})
}

// Update applies a remediation edit. Reviewed entries are immutable, and an
// edit is accepted only while the variance flag is raised or when the edit
// itself clears it.
func (s *Service) Update(ctx context.Context, entryID id.ID, patch Patch) (*Entry, error) {
	return s.mutate(ctx, entryID, func(e *Entry) error {
		if e.IsReviewed {
			return apperror.NewInvariantViolation("reviewed entry cannot be edited").
				WithDetail("id", entryID.String())
		}
		if !e.HasVariance() && !patch.ClearsVariance() {
			return apperror.NewInvariantViolation("entry can be edited only while its variance flag is raised").
				WithDetail("id", entryID.String())
		}

		patch.apply(e)
		if patch.changesWeight() {
			e.ManualWeight = true
		}

		veh, err := s.vehicles.GetByID(ctx, e.VehicleID)
		if err != nil {
			return err
		}
		if err := e.Recalculate(veh.TareWeight, s.tolerance); err != nil {
			return err
		}
		if patch.VarianceFlag != nil {
			flag := *patch.VarianceFlag
			e.VarianceFlag = &flag
		}

		if err := e.Validate(ctx); err != nil {
			return err
		}
		if patch.MaterialID != nil && e.EntryType == TypePurchase {
			if _, err := s.activeMaterial(ctx, *e.MaterialID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete soft-deletes an entry; it stays referenced by invoices and reports.
func (s *Service) Delete(ctx context.Context, entryID id.ID) error {
	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := e.CanModify(); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeDelete, e); err != nil {
			return err
		}
		return s.repo.Delete(ctx, entryID)
	})
	if err != nil {
		return err
	}

	e.Deactivate()
	s.runAfter(ctx, domain.AfterDelete, e)

	logger.Info(ctx, "entry deleted", "id", e.ID, "number", e.Number)
	return nil
}

// GetByID retrieves an entry, read-through cached.
func (s *Service) GetByID(ctx context.Context, entryID id.ID) (*Entry, error) {
	return cache.ReadThrough(ctx, s.cache, cache.Key(cache.ScopeEntry, entryID.String()), s.cacheTTL,
		func(ctx context.Context) (*Entry, error) {
			return s.repo.GetByID(ctx, entryID)
		})
}

// List retrieves entries, read-through cached per filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Entry], error) {
	filter.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.Key(cache.ScopeEntryList, cache.Fingerprint(filter)), s.cacheTTL,
		func(ctx context.Context) (domain.ListResult[*Entry], error) {
			res, err := s.repo.List(ctx, filter)
			if err != nil {
				return res, fmt.Errorf("list entries: %w", err)
			}
			return res, nil
		})
}

// mutate loads the entry under lock, applies fn and persists it with
// optimistic locking; after-update hooks run once the write is committed.
func (s *Service) mutate(ctx context.Context, entryID id.ID, fn func(e *Entry) error) (*Entry, error) {
	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := e.CanModify(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeUpdate(ctx, e); err != nil {
			return err
		}
		e.UpdatedBy = appctx.GetUserID(ctx)
		return s.repo.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.runAfter(ctx, domain.AfterUpdate, e)
	return e, nil
}

// runAfter executes after-hooks. The write is already committed, so
// failures are logged and never returned.
func (s *Service) runAfter(ctx context.Context, event domain.HookEvent, e *Entry) {
	for _, err := range s.hooks.RunAll(ctx, event, e) {
		logger.Warn(ctx, "entry after-hook failed",
			"event", event,
			"id", e.ID,
			"error", err)
	}
}

// checkReferences resolves vehicle, plant, vendor and (for purchases) material,
// and verifies the vendor trades through the plant.
func (s *Service) checkReferences(ctx context.Context, e *Entry) (*vehicle.Vehicle, error) {
	veh, err := s.vehicles.GetByID(ctx, e.VehicleID)
	if err != nil {
		return nil, err
	}
	if !veh.IsActive {
		return nil, apperror.NewInvalidRelationship("vehicle is inactive").WithDetail("vehicleId", e.VehicleID.String())
	}

	p, err := s.plants.GetByID(ctx, e.PlantID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperror.NewInvalidRelationship("plant is inactive").WithDetail("plantId", e.PlantID.String())
	}

	v, err := s.vendors.GetByID(ctx, e.VendorID)
	if err != nil {
		return nil, err
	}
	if !v.IsActive {
		return nil, apperror.NewInvalidRelationship("vendor is inactive").WithDetail("vendorId", e.VendorID.String())
	}
	if !v.IsLinkedTo(e.PlantID) {
		return nil, apperror.NewInvalidRelationship("vendor is not linked to plant").
			WithDetail("vendorId", e.VendorID.String()).
			WithDetail("plantId", e.PlantID.String())
	}

	if e.EntryType == TypePurchase {
		if _, err := s.activeMaterial(ctx, *e.MaterialID); err != nil {
			return nil, err
		}
	}
	return veh, nil
}

func (s *Service) activeMaterial(ctx context.Context, materialID id.ID) (*material.Material, error) {
	m, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, apperror.NewInvalidRelationship("material is inactive").WithDetail("materialId", materialID.String())
	}
	return m, nil
}
