package repo

import (
	"context"
	"sync"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type MemListingRepo struct {
	mu    sync.RWMutex
	items []domain.Listing
}

func NewMemListingRepo() *MemListingRepo { return &MemListingRepo{} }

func (r *MemListingRepo) index(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func copyListing(l domain.Listing) domain.Listing {
	return domain.Listing{ID: l.ID, Fields: cloneMap(l.Fields)}
}

func (r *MemListingRepo) List(_ context.Context) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Listing, 0, len(r.items))
	for _, l := range r.items {
		out = append(out, copyListing(l))
	}
	return out, nil
}

func (r *MemListingRepo) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		l := copyListing(r.items[i])
		return &l, nil
	}
	return nil, nil
}

func (r *MemListingRepo) Create(_ context.Context, fields map[string]any) (string, error) {
	id := utils.NewID()
	f := cloneMap(fields)
	if f == nil {
		f = map[string]any{}
	}
	delete(f, "_id")
	r.mu.Lock()
	r.items = append(r.items, domain.Listing{ID: id, Fields: f})
	r.mu.Unlock()
	return id, nil
}

func (r *MemListingRepo) Update(_ context.Context, id string, fields map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return false, nil
	}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		r.items[i].Fields[k] = cloneValue(v)
	}
	return true, nil
}

func (r *MemListingRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return false, nil
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return true, nil
}

func (r *MemListingRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *MemListingRepo) ListExcluding(_ context.Context, ids []string, limit int) ([]domain.Listing, error) {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Listing
	for _, l := range r.items {
		if skip[l.ID] {
			continue
		}
		out = append(out, copyListing(l))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
