package memory

import (
	"context"
	"sort"
	"strings"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
	"weighbridge/internal/domain"
	"weighbridge/internal/domain/documents/entry"
)

// EntryRepo implements entry.Repository.
type EntryRepo struct{ s *Store }

// Entries returns the entry repository.
func (s *Store) Entries() *EntryRepo { return &EntryRepo{s} }

func (r *EntryRepo) Create(_ context.Context, e *entry.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.entries[e.ID]; exists {
		return apperror.NewDuplicate("entry", "id", e.ID.String())
	}
	for _, other := range r.s.entries {
		if other.Number == e.Number {
			return apperror.NewDuplicate("entry", "number", e.Number)
		}
	}
	cp := *e
	r.s.entries[e.ID] = &cp
	return nil
}

func (r *EntryRepo) GetByID(_ context.Context, entryID id.ID) (*entry.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[entryID]
	if !ok {
		return nil, apperror.NewNotFound("entry", entryID.String())
	}
	cp := *e
	return &cp, nil
}

// GetForUpdate is GetByID: TxManager already serializes writers.
func (r *EntryRepo) GetForUpdate(ctx context.Context, entryID id.ID) (*entry.Entry, error) {
	return r.GetByID(ctx, entryID)
}

func (r *EntryRepo) GetByIDs(_ context.Context, ids []id.ID) ([]*entry.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entry.Entry, 0, len(ids))
	for _, entryID := range ids {
		if e, ok := r.s.entries[entryID]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *EntryRepo) Update(_ context.Context, e *entry.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.entries[e.ID]
	if !ok {
		return apperror.NewNotFound("entry", e.ID.String())
	}
	if stored.Version != e.Version {
		return apperror.NewConcurrentModification("entry", e.ID.String())
	}
	e.Touch()
	cp := *e
	r.s.entries[e.ID] = &cp
	return nil
}

func (r *EntryRepo) RecordExit(_ context.Context, e *entry.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.entries[e.ID]
	if !ok {
		return apperror.NewNotFound("entry", e.ID.String())
	}
	if stored.ExitWeight != nil {
		return apperror.NewAlreadyRecorded("exitWeight", e.ID.String())
	}
	e.Touch()
	cp := *e
	r.s.entries[e.ID] = &cp
	return nil
}

func (r *EntryRepo) Delete(_ context.Context, entryID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.entries[entryID]
	if !ok {
		return apperror.NewNotFound("entry", entryID.String())
	}
	cp := *stored
	cp.Deactivate()
	cp.Touch()
	r.s.entries[entryID] = &cp
	return nil
}

func (r *EntryRepo) FindAll(_ context.Context, filter entry.ListFilter) ([]*entry.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entry.Entry, 0)
	for _, e := range r.s.entries {
		if filter.Matches(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	if err := sortEntries(out, filter.OrderBy); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EntryRepo) List(ctx context.Context, filter entry.ListFilter) (domain.ListResult[*entry.Entry], error) {
	all, err := r.FindAll(ctx, filter)
	if err != nil {
		return domain.ListResult[*entry.Entry]{}, err
	}
	return paginate(all, filter.Limit, filter.Offset), nil
}

func sortEntries(items []*entry.Entry, orderBy string) error {
	field, desc := parseOrder(orderBy)
	var less func(a, b *entry.Entry) bool
	switch field {
	case "date", "":
		less = func(a, b *entry.Entry) bool { return a.Date.Before(b.Date) }
	case "number":
		less = func(a, b *entry.Entry) bool { return a.Number < b.Number }
	case "created_at":
		less = func(a, b *entry.Entry) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b *entry.Entry) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "entry_weight":
		less = func(a, b *entry.Entry) bool { return a.EntryWeight.LessThan(b.EntryWeight) }
	default:
		return apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
	return nil
}

func parseOrder(orderBy string) (field string, desc bool) {
	orderBy = strings.TrimSpace(orderBy)
	switch {
	case strings.HasPrefix(orderBy, "-"):
		return strings.TrimPrefix(orderBy, "-"), true
	case strings.HasPrefix(orderBy, "+"):
		return strings.TrimPrefix(orderBy, "+"), false
	}
	return orderBy, false
}

func paginate[T any](all []T, limit, offset int) domain.ListResult[T] {
	res := domain.ListResult[T]{TotalCount: int64(len(all)), Limit: limit, Offset: offset}
	if offset >= len(all) {
		res.Items = []T{}
		return res
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	res.Items = all[offset:end]
	return res
}

var _ entry.Repository = (*EntryRepo)(nil)
