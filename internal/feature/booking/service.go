package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/core/metrics"
	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

const (
	msgInvalidHouseID = "Invalid house ID"
	msgInvalidID      = "Invalid booking ID"
	msgNotFound       = "Booking not found"
	msgStatusRequired = "Booking status is required"
	msgEmailRequired  = "Email is required"
	msgUnknownUser    = "User not found with the provided email"
	msgAlreadyBooked  = "You have already booked this house"
)

type Service struct {
	bookings domain.BookingRepository
	accounts domain.AccountRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewService(bookings domain.BookingRepository, accounts domain.AccountRepository, log *zap.Logger) *Service {
	return &Service{
		bookings: bookings,
		accounts: accounts,
		log:      log.Named("booking"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to access bookings", err)
}

type CreateInput struct {
	ListingID string
	Email     string
	Extra     map[string]any
}

// Create 先查重再插入；唯一索引兜住并发下的重复
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if !utils.ValidID(in.ListingID) {
		return "", apperr.InvalidID(msgInvalidHouseID)
	}
	email := utils.NormalizeEmail(in.Email)
	if email == "" {
		return "", apperr.InvalidInput(msgEmailRequired)
	}
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", s.storeErr("create", err)
	}
	if acc == nil {
		return "", apperr.NotFound(msgUnknownUser)
	}
	dup, err := s.bookings.Exists(ctx, acc.ID, in.ListingID)
	if err != nil {
		return "", s.storeErr("create", err)
	}
	if dup {
		metrics.Event(metrics.EventBookingRejected)
		return "", apperr.Conflict(msgAlreadyBooked)
	}

	b := &domain.Booking{
		UserID:    acc.ID,
		ListingID: in.ListingID,
		Email:     email,
		Status:    domain.StatusPending,
		BookedAt:  s.now(),
		Extra:     extraFields(in.Extra),
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			metrics.Event(metrics.EventBookingRejected)
			return "", apperr.Conflict(msgAlreadyBooked)
		}
		return "", s.storeErr("create", err)
	}
	metrics.Event(metrics.EventBookingCreated)
	s.log.Info("booking created", zap.String("id", b.ID), zap.String("listing", b.ListingID), zap.String("email", email))
	return b.ID, nil
}

func extraFields(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, k := range domain.BookingReservedKeys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Booking, error) {
	items, err := s.bookings.List(ctx, domain.BookingQuery{})
	if err != nil {
		return nil, s.storeErr("listAll", err)
	}
	return items, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.InvalidInput(msgEmailRequired)
	}
	items, err := s.bookings.List(ctx, domain.BookingQuery{Email: email})
	if err != nil {
		return nil, s.storeErr("listByEmail", err)
	}
	return items, nil
}

// UpdateStatus 不限制状态流转，任意非空字符串都接受
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return apperr.InvalidInput(msgStatusRequired)
	}
	if !utils.ValidID(id) {
		return apperr.InvalidID(msgInvalidID)
	}
	ok, err := s.bookings.UpdateStatus(ctx, id, status)
	if err != nil {
		return s.storeErr("updateStatus", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	metrics.Event(metrics.EventBookingStatus)
	return nil
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	if !utils.ValidID(id) {
		return apperr.InvalidID(msgInvalidID)
	}
	ok, err := s.bookings.Delete(ctx, id)
	if err != nil {
		return s.storeErr("deleteById", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	metrics.Event(metrics.EventBookingDeleted)
	return nil
}

// DeleteAllByEmail 没有匹配时返回 0，不算错误
func (s *Service) DeleteAllByEmail(ctx context.Context, email string) (int64, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return 0, apperr.InvalidInput(msgEmailRequired)
	}
	n, err := s.bookings.DeleteByEmail(ctx, email)
	if err != nil {
		return 0, s.storeErr("deleteAllByEmail", err)
	}
	metrics.EventN(metrics.EventBookingDeleted, int(n))
	return n, nil
}
