package listing

import (
	"context"

	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/core/metrics"
	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

const (
	msgInvalidID = "Invalid house ID"
	msgNotFound  = "House not found"
	msgNoFields  = "House data is required"
)

// Service 房源目录；字段结构由调用方决定，这里只校验 id
type Service struct {
	repo domain.ListingRepository
	log  *zap.Logger
}

func NewService(repo domain.ListingRepository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log.Named("listing")}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to access houses", err)
}

func (s *Service) List(ctx context.Context) ([]domain.Listing, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storeErr("list", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if !utils.ValidID(id) {
		return nil, apperr.InvalidID(msgInvalidID)
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("get", err)
	}
	if l == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	return l, nil
}

func (s *Service) Create(ctx context.Context, fields map[string]any) (string, error) {
	if fields == nil {
		return "", apperr.InvalidInput(msgNoFields)
	}
	id, err := s.repo.Create(ctx, fields)
	if err != nil {
		return "", s.storeErr("create", err)
	}
	metrics.Event(metrics.EventListingCreated)
	return id, nil
}

// Update 局部合并；body 里的 _id 被忽略
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if !utils.ValidID(id) {
		return apperr.InvalidID(msgInvalidID)
	}
	ok, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return s.storeErr("update", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !utils.ValidID(id) {
		return apperr.InvalidID(msgInvalidID)
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storeErr("delete", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	metrics.Event(metrics.EventListingDeleted)
	return nil
}
