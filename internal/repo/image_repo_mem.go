package repo

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type memImage struct {
	meta domain.Image
	data []byte
}

type MemImageRepo struct {
	mu    sync.RWMutex
	items []memImage
}

func NewMemImageRepo() *MemImageRepo { return &MemImageRepo{} }

func (r *MemImageRepo) Save(_ context.Context, img *domain.Image, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	img.ID = utils.NewID()
	img.Size = int64(len(data))
	r.mu.Lock()
	r.items = append(r.items, memImage{meta: *img, data: data})
	r.mu.Unlock()
	return nil
}

func (r *MemImageRepo) List(_ context.Context) ([]domain.Image, error) {
	r.mu.RLock()
	out := make([]domain.Image, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it.meta)
	}
	r.mu.RUnlock()
	return newestFirst(out, func(i domain.Image) time.Time { return i.CreatedAt }), nil
}

func (r *MemImageRepo) Open(_ context.Context, id string) (*domain.Image, io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.meta.ID == id {
			meta := it.meta
			return &meta, io.NopCloser(bytes.NewReader(it.data)), nil
		}
	}
	return nil, nil, nil
}
