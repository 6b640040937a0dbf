package review

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/core/metrics"
	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

const (
	msgInvalidID     = "Invalid review ID"
	msgInvalidUserID = "Invalid user ID"
	msgNotFound      = "Review not found"
	msgUnknownUser   = "User not found with the provided email"
	msgUnauthorized  = "Unauthorized"
	msgNotOwner      = "Forbidden: You can only update your own reviews"
	msgNoFields      = "No valid fields to update"
	msgBadRating     = "Rating must be a number between 1 and 5"
	msgEmptyText     = "Review text cannot be empty"
	msgTextNotString = "Review text must be a string"
	msgTextTooLong   = "Review text cannot exceed 1000 characters"
	msgNoChange      = "No changes were made to the review"

	deletedUser = "Deleted User"
	unknownUser = "Unknown User"

	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Service struct {
	reviews  domain.ReviewRepository
	accounts domain.AccountRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewService(reviews domain.ReviewRepository, accounts domain.AccountRepository, log *zap.Logger) *Service {
	return &Service{
		reviews:  reviews,
		accounts: accounts,
		log:      log.Named("review"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to access reviews", err)
}

// ParseRating 接受 JSON 数字或数字字符串，必须是 1~5 的整数
func ParseRating(v any) (int, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, apperr.InvalidInput(msgBadRating)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, apperr.InvalidInput(msgBadRating)
		}
		f = n
	default:
		return 0, apperr.InvalidInput(msgBadRating)
	}
	if f != math.Trunc(f) || f < domain.MinRating || f > domain.MaxRating {
		return 0, apperr.InvalidInput(msgBadRating)
	}
	return int(f), nil
}

func parseText(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", apperr.InvalidInput(msgTextNotString)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.InvalidInput(msgEmptyText)
	}
	if utf8.RuneCountInString(s) > domain.MaxReviewTextLen {
		return "", apperr.InvalidInput(msgTextTooLong)
	}
	return s, nil
}

// Add userId 绑定到提交者账号，之后不可变更
func (s *Service) Add(ctx context.Context, email string, text, rating any) (*domain.ReviewView, error) {
	t, err := parseText(text)
	if err != nil {
		return nil, err
	}
	r, err := ParseRating(rating)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, s.storeErr("add", err)
	}
	if acc == nil {
		return nil, apperr.NotFound(msgUnknownUser)
	}
	rv := &domain.Review{UserID: acc.ID, Text: t, Rating: r, CreatedAt: s.now()}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, s.storeErr("add", err)
	}
	metrics.Event(metrics.EventReviewCreated)
	return &domain.ReviewView{Review: *rv, User: reviewerOf(acc)}, nil
}

func reviewerOf(a *domain.Account) domain.Reviewer {
	if a == nil {
		return domain.Reviewer{DisplayName: deletedUser}
	}
	r := domain.Reviewer{DisplayName: a.DisplayName}
	if r.DisplayName == "" {
		r.DisplayName = unknownUser
	}
	if a.PhotoURL != "" {
		p := a.PhotoURL
		r.PhotoURL = &p
	}
	return r
}

// attach 一次批量查询作者信息
func (s *Service) attach(ctx context.Context, op string, items []domain.Review) ([]domain.ReviewView, error) {
	out := make([]domain.ReviewView, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, rv := range items {
		if !seen[rv.UserID] {
			seen[rv.UserID] = true
			ids = append(ids, rv.UserID)
		}
	}
	accs, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.storeErr(op, err)
	}
	byID := make(map[string]*domain.Account, len(accs))
	for i := range accs {
		byID[accs[i].ID] = &accs[i]
	}
	for _, rv := range items {
		out = append(out, domain.ReviewView{Review: rv, User: reviewerOf(byID[rv.UserID])})
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.ReviewView, error) {
	items, err := s.reviews.List(ctx, domain.ReviewQuery{})
	if err != nil {
		return nil, s.storeErr("listAll", err)
	}
	return s.attach(ctx, "listAll", items)
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.ReviewView, error) {
	if !utils.ValidID(id) {
		return nil, apperr.InvalidID(msgInvalidID)
	}
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("getById", err)
	}
	if rv == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	views, err := s.attach(ctx, "getById", []domain.Review{*rv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.ReviewView, error) {
	if !utils.ValidID(userID) {
		return nil, apperr.InvalidID(msgInvalidUserID)
	}
	items, err := s.reviews.List(ctx, domain.ReviewQuery{UserID: userID})
	if err != nil {
		return nil, s.storeErr("listByUser", err)
	}
	return s.attach(ctx, "listByUser", items)
}

// Update 只允许修改 reviewtext 与 rating。
// 新值与原值完全相同视为没有修改，返回 NoChange。
func (s *Service) Update(ctx context.Context, id, requesterEmail string, fields map[string]any) (*domain.Review, error) {
	if !utils.ValidID(id) {
		return nil, apperr.InvalidID(msgInvalidID)
	}
	existing, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("update", err)
	}
	if existing == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	acc, err := s.accounts.FindByEmail(ctx, utils.NormalizeEmail(requesterEmail))
	if err != nil {
		return nil, s.storeErr("update", err)
	}
	if acc == nil {
		return nil, apperr.Unauthorized(msgUnauthorized)
	}
	if acc.ID != existing.UserID {
		return nil, apperr.Forbidden(msgNotOwner)
	}

	rawText, hasText := fields["reviewtext"]
	rawRating, hasRating := fields["rating"]
	if !hasText && !hasRating {
		return nil, apperr.InvalidInput(msgNoFields)
	}
	var p domain.ReviewPatch
	changed := false
	if hasRating {
		r, err := ParseRating(rawRating)
		if err != nil {
			return nil, err
		}
		p.Rating = &r
		changed = changed || r != existing.Rating
	}
	if hasText {
		t, err := parseText(rawText)
		if err != nil {
			return nil, err
		}
		p.Text = &t
		changed = changed || t != existing.Text
	}
	if !changed {
		return nil, apperr.NoChange(msgNoChange)
	}

	ok, err := s.reviews.Update(ctx, id, p, s.now())
	if err != nil {
		return nil, s.storeErr("update", err)
	}
	if !ok {
		return nil, apperr.NotFound(msgNotFound)
	}
	updated, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("update", err)
	}
	if updated == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	metrics.Event(metrics.EventReviewUpdated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !utils.ValidID(id) {
		return apperr.InvalidID(msgInvalidID)
	}
	ok, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return s.storeErr("delete", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	metrics.Event(metrics.EventReviewDeleted)
	return nil
}

type Page struct {
	Items       []domain.ReviewView `json:"items"`
	CurrentPage int                 `json:"currentPage"`
	TotalPages  int64               `json:"totalPages"`
	TotalCount  int64               `json:"totalCount"`
}

// ListPaginated page 从 1 开始；请求页为空时总数一并置零
func (s *Service) ListPaginated(ctx context.Context, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	total, err := s.reviews.Count(ctx, "")
	if err != nil {
		return nil, s.storeErr("listPaginated", err)
	}
	items, err := s.reviews.List(ctx, domain.ReviewQuery{Skip: (page - 1) * size, Limit: size})
	if err != nil {
		return nil, s.storeErr("listPaginated", err)
	}
	if len(items) == 0 {
		return &Page{Items: []domain.ReviewView{}, CurrentPage: page}, nil
	}
	views, err := s.attach(ctx, "listPaginated", items)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:       views,
		CurrentPage: page,
		TotalPages:  (total + int64(size) - 1) / int64(size),
		TotalCount:  total,
	}, nil
}
