package repo

import (
	"context"
	"sync"
	"time"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type MemReviewRepo struct {
	mu    sync.RWMutex
	items []domain.Review
}

func NewMemReviewRepo() *MemReviewRepo { return &MemReviewRepo{} }

func copyReview(r domain.Review) domain.Review {
	r.UpdatedAt = cloneTime(r.UpdatedAt)
	return r
}

func (r *MemReviewRepo) Create(_ context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = utils.NewID()
	}
	r.mu.Lock()
	r.items = append(r.items, copyReview(*rv))
	r.mu.Unlock()
	return nil
}

func (r *MemReviewRepo) FindByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rv := range r.items {
		if rv.ID == id {
			c := copyReview(rv)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemReviewRepo) List(_ context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	r.mu.RLock()
	var out []domain.Review
	for _, rv := range r.items {
		if q.UserID != "" && rv.UserID != q.UserID {
			continue
		}
		out = append(out, copyReview(rv))
	}
	r.mu.RUnlock()
	out = newestFirst(out, func(rv domain.Review) time.Time { return rv.CreatedAt })
	return limitSlice(out, q.Skip, q.Limit), nil
}

func (r *MemReviewRepo) Count(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rv := range r.items {
		if userID == "" || rv.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemReviewRepo) Update(_ context.Context, id string, p domain.ReviewPatch, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if p.Text != nil {
			r.items[i].Text = *p.Text
		}
		if p.Rating != nil {
			r.items[i].Rating = *p.Rating
		}
		r.items[i].UpdatedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *MemReviewRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
