package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type MemBookingRepo struct {
	mu    sync.RWMutex
	items []domain.Booking
}

func NewMemBookingRepo() *MemBookingRepo { return &MemBookingRepo{} }

func copyBooking(b domain.Booking) domain.Booking {
	b.Extra = cloneMap(b.Extra)
	return b
}

func (r *MemBookingRepo) exists(userID, listingID string) bool {
	for _, b := range r.items {
		if b.UserID == userID && b.ListingID == listingID {
			return true
		}
	}
	return false
}

func (r *MemBookingRepo) Create(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exists(b.UserID, b.ListingID) {
		return domain.ErrDuplicate
	}
	if b.ID == "" {
		b.ID = utils.NewID()
	}
	r.items = append(r.items, copyBooking(*b))
	return nil
}

func (r *MemBookingRepo) Exists(_ context.Context, userID, listingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exists(userID, listingID), nil
}

func (r *MemBookingRepo) List(_ context.Context, q domain.BookingQuery) ([]domain.Booking, error) {
	r.mu.RLock()
	var out []domain.Booking
	for _, b := range r.items {
		if q.UserID != "" && b.UserID != q.UserID {
			continue
		}
		if q.Email != "" && b.Email != q.Email {
			continue
		}
		out = append(out, copyBooking(b))
	}
	r.mu.RUnlock()
	if q.Newest {
		out = newestFirst(out, func(b domain.Booking) time.Time { return b.BookedAt })
	}
	return limitSlice(out, 0, q.Limit), nil
}

func (r *MemBookingRepo) UpdateStatus(_ context.Context, id, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (r *MemBookingRepo) Delete(_ context.Context, id string) (bool, error) {
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

func (r *MemBookingRepo) DeleteByEmail(_ context.Context, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	var n int64
	for _, b := range r.items {
		if b.Email == email {
			n++
			continue
		}
		kept = append(kept, b)
	}
	r.items = kept
	return n, nil
}

func (r *MemBookingRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *MemBookingRepo) StatusHistogram(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int64{}
	for _, b := range r.items {
		out[b.Status]++
	}
	return out, nil
}

func (r *MemBookingRepo) Popular(_ context.Context, limit int) ([]domain.ListingCount, error) {
	r.mu.RLock()
	counts := map[string]int64{}
	for _, b := range r.items {
		counts[b.ListingID]++
	}
	r.mu.RUnlock()

	out := make([]domain.ListingCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.ListingCount{ListingID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ListingID < out[j].ListingID
	})
	return limitSlice(out, 0, limit), nil
}
