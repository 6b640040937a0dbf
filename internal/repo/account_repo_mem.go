package repo

import (
	"context"
	"sync"
	"time"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type MemAccountRepo struct {
	mu    sync.RWMutex
	items []*domain.Account
}

func NewMemAccountRepo() *MemAccountRepo { return &MemAccountRepo{} }

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.UpdatedAt = cloneTime(a.UpdatedAt)
	return &c
}

func (r *MemAccountRepo) find(email string) *domain.Account {
	for _, a := range r.items {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (r *MemAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a := r.find(email); a != nil {
		return cloneAccount(a), nil
	}
	return nil, nil
}

func (r *MemAccountRepo) FindByIDs(_ context.Context, ids []string) ([]domain.Account, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Account
	for _, a := range r.items {
		if want[a.ID] {
			out = append(out, *cloneAccount(a))
		}
	}
	return out, nil
}

func (r *MemAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(a.Email) != nil {
		return domain.ErrDuplicate
	}
	if a.ID == "" {
		a.ID = utils.NewID()
	}
	r.items = append(r.items, cloneAccount(a))
	return nil
}

func (r *MemAccountRepo) UpsertFromProvider(_ context.Context, p domain.ProviderProfile, now time.Time) (*domain.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.find(p.Email); a != nil {
		a.GoogleName = p.DisplayName
		a.GooglePhotoURL = p.PhotoURL
		return cloneAccount(a), false, nil
	}
	a := &domain.Account{
		ID:             utils.NewID(),
		Email:          p.Email,
		DisplayName:    p.DisplayName,
		PhotoURL:       p.PhotoURL,
		GoogleName:     p.DisplayName,
		GooglePhotoURL: p.PhotoURL,
		CreatedAt:      now,
	}
	r.items = append(r.items, a)
	return cloneAccount(a), true, nil
}

func (r *MemAccountRepo) UpdateProfile(_ context.Context, email, displayName, photoURL string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.find(email)
	if a == nil {
		return false, nil
	}
	a.DisplayName = displayName
	a.PhotoURL = photoURL
	a.UpdatedAt = &now
	return true, nil
}

func (r *MemAccountRepo) SetRole(_ context.Context, email, role string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.find(email)
	if a == nil {
		return false, nil
	}
	a.Role = role
	a.UpdatedAt = &now
	return true, nil
}

func (r *MemAccountRepo) CountAdmins(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, a := range r.items {
		if a.IsAdmin() {
			n++
		}
	}
	return n, nil
}

func (r *MemAccountRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *MemAccountRepo) List(_ context.Context, q domain.AccountQuery) ([]domain.Account, error) {
	r.mu.RLock()
	var all []domain.Account
	for _, a := range r.items {
		if q.AdminsOnly && !a.IsAdmin() {
			continue
		}
		all = append(all, *cloneAccount(a))
	}
	r.mu.RUnlock()
	sorted := newestFirst(all, func(a domain.Account) time.Time { return a.CreatedAt })
	return limitSlice(sorted, 0, q.Limit), nil
}
