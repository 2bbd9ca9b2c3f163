// Package memory provides in-process repositories for development mode and
// service tests. Transactions are serialized and rolled back by snapshot.
package memory

import (
	"context"
	"maps"
	"sync"

	"weighbridge/internal/core/id"
	"weighbridge/internal/core/tx"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
)

// Store holds every table of the service.
type Store struct {
	mu        sync.RWMutex
	plants    map[id.ID]*plant.Plant
	vendors   map[id.ID]*vendor.Vendor
	vehicles  map[id.ID]*vehicle.Vehicle
	materials map[id.ID]*material.Material
	entries   map[id.ID]*entry.Entry
	invoices  map[id.ID]*invoice.Invoice
	claims    map[id.ID]id.ID // entry -> invoice, active claims only
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		plants:    make(map[id.ID]*plant.Plant),
		vendors:   make(map[id.ID]*vendor.Vendor),
		vehicles:  make(map[id.ID]*vehicle.Vehicle),
		materials: make(map[id.ID]*material.Material),
		entries:   make(map[id.ID]*entry.Entry),
		invoices:  make(map[id.ID]*invoice.Invoice),
		claims:    make(map[id.ID]id.ID),
	}
}

type snapshot struct {
	vehicles map[id.ID]*vehicle.Vehicle
	entries  map[id.ID]*entry.Entry
	invoices map[id.ID]*invoice.Invoice
	claims   map[id.ID]id.ID
}

// Stored values are replaced, never mutated in place, so a shallow map copy
// is a consistent snapshot. Catalogs other than vehicles are read-only here.
func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		vehicles: maps.Clone(s.vehicles),
		entries:  maps.Clone(s.entries),
		invoices: maps.Clone(s.invoices),
		claims:   maps.Clone(s.claims),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = snap.vehicles
	s.entries = snap.entries
	s.invoices = snap.invoices
	s.claims = snap.claims
}

// --- Seeding (catalogs are maintained outside this service) ---

// AddPlant stores a plant.
func (s *Store) AddPlant(p *plant.Plant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.plants[p.ID] = &cp
}

// AddVendor stores a vendor.
func (s *Store) AddVendor(v *vendor.Vendor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vendors[v.ID] = &cp
}

// AddVehicle stores a vehicle.
func (s *Store) AddVehicle(v *vehicle.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vehicles[v.ID] = &cp
}

// AddMaterial stores a material.
func (s *Store) AddMaterial(m *material.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.materials[m.ID] = &cp
}

// --- Transactions ---

type txKey struct{}

// TxManager serializes transactions over a Store and restores the
// pre-transaction state when fn fails. Nested calls join the outer one.
type TxManager struct {
	store *Store
	mu    sync.Mutex
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)
