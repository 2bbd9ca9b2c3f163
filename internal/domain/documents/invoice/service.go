package invoice

import (
	"context"
	"fmt"
	"time"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/cache"
	appctx "weighbridge/internal/core/context"
	"weighbridge/internal/core/entity"
	"weighbridge/internal/core/id"
	"weighbridge/internal/core/numerator"
	"weighbridge/internal/core/tx"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/pkg/logger"
)

// ServiceConfig wires the invoice service.
type ServiceConfig struct {
	Repo      Repository
	Entries   entry.Repository
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
}

// Service aggregates settled entries into invoices and keeps invoice
// totals in step with later entry edits.
type Service struct {
	repo      Repository
	entries   entry.Repository
	vendors   vendor.Repository
	plants    plant.Repository
	materials material.Repository
	numerator numerator.Generator
	strategy  numerator.Strategy
	txManager tx.Manager
	cache     cache.Store
	cacheTTL  time.Duration
	hooks     *domain.HookRegistry[*Invoice]
}

// NewService creates a new invoice service.
func NewService(cfg ServiceConfig) *Service {
	strategy := DefaultNumeratorStrategy
	if cfg.NumeratorStrategy != nil {
		strategy = *cfg.NumeratorStrategy
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		repo:      cfg.Repo,
		entries:   cfg.Entries,
		vendors:   cfg.Vendors,
		plants:    cfg.Plants,
		materials: cfg.Materials,
		numerator: cfg.Numerator,
		strategy:  strategy,
		txManager: cfg.TxManager,
		cache:     cfg.Cache,
		cacheTTL:  ttl,
		hooks:     domain.NewHookRegistry[*Invoice](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Invoice] {
	return s.hooks
}

// Create builds an invoice from the entries eligible right now.
//
// Entries already claimed by another active invoice are excluded, as are
// materials or palette types without a rate. Creation fails only when
// nothing remains. If a concurrent invoice claims one of the selected
// entries first, selection is retried a bounded number of times.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Invoice, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	criteria := Criteria{
		VendorID:  req.VendorID,
		PlantID:   req.PlantID,
		EntryType: req.InvoiceType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	var (
		inv *Invoice
		err error
	)
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		inv, err = s.createOnce(ctx, req, criteria)
		if err == nil || !apperror.IsConcurrentModification(err) {
			break
		}
		logger.Warn(ctx, "invoice claim lost, reselecting entries",
			"attempt", attempt,
			"vendor_id", req.VendorID)
	}
	if err != nil {
		return nil, err
	}

	for _, hookErr := range s.hooks.RunAll(ctx, domain.AfterCreate, inv) {
		logger.Warn(ctx, "invoice after-create hook failed", "id", inv.ID, "error", hookErr)
	}

	logger.Info(ctx, "invoice created",
		"id", inv.ID,
		"number", inv.Number,
		"entries", len(inv.EntryIDs),
		"total_amount", inv.TotalAmount.String())

	return inv, nil
}

func (s *Service) createOnce(ctx context.Context, req CreateRequest, criteria Criteria) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		candidates, err := s.repo.EligibleEntries(ctx, criteria)
		if err != nil {
			return fmt.Errorf("select eligible entries: %w", err)
		}

		eligible := candidates[:0:0]
		for _, e := range candidates {
			if criteria.Eligible(e) {
				eligible = append(eligible, e)
			}
		}

		var agg Aggregation
		switch req.InvoiceType {
		case entry.TypePurchase:
			agg = AggregatePurchase(eligible, req.MaterialRates)
		case entry.TypeSale:
			agg = AggregateSale(eligible, *req.PaletteRates)
		}
		if len(agg.Included) == 0 {
			return apperror.NewIneligibleForInvoicing("no eligible entries for the given range and rates").
				WithDetail("vendorId", req.VendorID.String()).
				WithDetail("plantId", req.PlantID.String()).
				WithDetail("candidates", len(candidates))
		}

		inv = &Invoice{
			Document:          entity.NewDocument(),
			InvoiceType:       req.InvoiceType,
			VendorID:          req.VendorID,
			PlantID:           req.PlantID,
			StartDate:         req.StartDate,
			EndDate:           req.EndDate,
			MaterialRates:     req.MaterialRates,
			PaletteRates:      req.PaletteRates,
			MaterialBreakdown: agg.MaterialBreakdown,
			PaletteBreakdown:  agg.PaletteBreakdown,
			TotalQuantity:     agg.TotalQuantity,
			TotalAmount:       agg.TotalAmount,
			EntryIDs:          agg.EntryIDs(),
		}
		inv.Comment = req.Comment
		inv.CreatedBy = appctx.GetUserID(ctx)
		inv.UpdatedBy = inv.CreatedBy

		if err := s.hooks.RunBeforeCreate(ctx, inv); err != nil {
			return err
		}

		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: s.strategy}, inv.Date)
		if err != nil {
			return err
		}
		inv.Number = number

		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return s.repo.ClaimEntries(ctx, inv.ID, inv.EntryIDs)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete soft-deletes an invoice and releases its entries for re-invoicing.
func (s *Service) Delete(ctx context.Context, invoiceID id.ID) error {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.CanModify(); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeDelete(ctx, inv); err != nil {
			return err
		}
		if err := s.repo.ReleaseEntries(ctx, invoiceID); err != nil {
			return fmt.Errorf("release entries: %w", err)
		}
		return s.repo.Delete(ctx, invoiceID)
	})
	if err != nil {
		return err
	}

	inv.Deactivate()
	for _, hookErr := range s.hooks.RunAll(ctx, domain.AfterDelete, inv) {
		logger.Warn(ctx, "invoice after-delete hook failed", "id", inv.ID, "error", hookErr)
	}

	logger.Info(ctx, "invoice deleted", "id", inv.ID, "number", inv.Number)
	return nil
}

// Recompute refreshes the totals of one invoice from its entries' current state.
func (s *Service) Recompute(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.CanModify(); err != nil {
			return err
		}
		_, err = s.recompute(ctx, inv)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, hookErr := range s.hooks.RunAll(ctx, domain.AfterUpdate, inv) {
		logger.Warn(ctx, "invoice after-update hook failed", "id", inv.ID, "error", hookErr)
	}
	return inv, nil
}

// RecomputeTotalsForEntry refreshes the totals of every active invoice that
// holds entryID and returns the ids of those invoices. Running it twice on
// unchanged data leaves the totals unchanged.
func (s *Service) RecomputeTotalsForEntry(ctx context.Context, entryID id.ID) ([]id.ID, error) {
	var touched []id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		invoices, err := s.repo.ActiveByEntry(ctx, entryID)
		if err != nil {
			return fmt.Errorf("find invoices for entry: %w", err)
		}
		for _, inv := range invoices {
			if _, err := s.recompute(ctx, inv); err != nil {
				return fmt.Errorf("recompute invoice %s: %w", inv.Number, err)
			}
			touched = append(touched, inv.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// recompute updates inv's totals in place and persists them if they moved.
func (s *Service) recompute(ctx context.Context, inv *Invoice) (bool, error) {
	entries, err := s.entries.GetByIDs(ctx, inv.EntryIDs)
	if err != nil {
		return false, fmt.Errorf("load entries: %w", err)
	}

	quantity, amount := Totals(inv, entries)
	if quantity.Equal(inv.TotalQuantity) && amount.Equal(inv.TotalAmount) {
		return false, nil
	}
	if err := s.repo.UpdateTotals(ctx, inv.ID, quantity, amount); err != nil {
		return false, err
	}

	logger.Debug(ctx, "invoice totals recomputed",
		"id", inv.ID,
		"from_amount", inv.TotalAmount.String(),
		"to_amount", amount.String())

	inv.TotalQuantity, inv.TotalAmount = quantity, amount
	return true, nil
}

// GetByID retrieves an invoice, read-through cached.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return cache.ReadThrough(ctx, s.cache, cache.Key(cache.ScopeInvoice, invoiceID.String()), s.cacheTTL,
		func(ctx context.Context) (*Invoice, error) {
			return s.repo.GetByID(ctx, invoiceID)
		})
}

// List retrieves invoices, read-through cached per filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	filter.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.Key(cache.ScopeInvoiceList, cache.Fingerprint(filter)), s.cacheTTL,
		func(ctx context.Context) (domain.ListResult[*Invoice], error) {
			res, err := s.repo.List(ctx, filter)
			if err != nil {
				return res, fmt.Errorf("list invoices: %w", err)
			}
			return res, nil
		})
}

// checkReferences verifies vendor, plant, their link, and that every rated
// material exists.
func (s *Service) checkReferences(ctx context.Context, req CreateRequest) error {
	p, err := s.plants.GetByID(ctx, req.PlantID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperror.NewInvalidRelationship("plant is inactive").WithDetail("plantId", req.PlantID.String())
	}

	v, err := s.vendors.GetByID(ctx, req.VendorID)
	if err != nil {
		return err
	}
	if !v.IsLinkedTo(req.PlantID) {
		return apperror.NewInvalidRelationship("vendor is not linked to plant").
			WithDetail("vendorId", req.VendorID.String()).
			WithDetail("plantId", req.PlantID.String())
	}

	if req.InvoiceType != entry.TypePurchase {
		return nil
	}

	ids := make([]id.ID, len(req.MaterialRates))
	for i, mr := range req.MaterialRates {
		ids[i] = mr.MaterialID
	}
	found, err := s.materials.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load materials: %w", err)
	}
	known := make(map[id.ID]struct{}, len(found))
	for _, m := range found {
		known[m.ID] = struct{}{}
	}
	for _, materialID := range ids {
		if _, ok := known[materialID]; !ok {
			return apperror.NewNotFound("material", materialID.String())
		}
	}
	return nil
}
