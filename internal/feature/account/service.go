package account

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
	msgEmailRequired = "Email is required"
	msgUserExists    = "User already exists"
	msgUserNotFound  = "User not found"
	msgAdminOnly     = "Forbidden: Admin access required"
	msgNotAdmin      = "User is not an admin"
	msgLastAdmin     = "Cannot revoke the last admin"
	msgSelfRevoke    = "You cannot revoke your own admin role"
	msgAdminExists   = "An admin already exists"
)

// Service 账号目录：角色判断、注册、资料维护与管理员授予/撤销
type Service struct {
	repo domain.AccountRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo domain.AccountRepository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log.Named("account"), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to access accounts", err)
}

func (s *Service) find(ctx context.Context, op, email string) (*domain.Account, error) {
	a, err := s.repo.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, s.storeErr(op, err)
	}
	return a, nil
}

// ResolveRole 账号不存在视为非管理员
func (s *Service) ResolveRole(ctx context.Context, email string) (bool, error) {
	a, err := s.find(ctx, "resolveRole", email)
	if err != nil {
		return false, err
	}
	return a.IsAdmin(), nil
}

func (s *Service) Get(ctx context.Context, email string) (*domain.Account, error) {
	a, err := s.find(ctx, "get", email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return a, nil
}

type RegisterInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Register 新建账号，不带任何角色
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.InvalidInput(msgEmailRequired)
	}
	existing, err := s.find(ctx, "register", email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(msgUserExists)
	}
	a := &domain.Account{
		Email:       email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		PhotoURL:    strings.TrimSpace(in.PhotoURL),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict(msgUserExists)
		}
		return nil, s.storeErr("register", err)
	}
	metrics.Event(metrics.EventAccountRegistered)
	s.log.Info("account registered", zap.String("email", email))
	return a, nil
}

// UpsertFromProvider 提供方登录回调；已存在时只刷新 google* 字段
func (s *Service) UpsertFromProvider(ctx context.Context, email, displayName, photoURL string) (*domain.Account, bool, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, false, apperr.InvalidInput(msgEmailRequired)
	}
	a, created, err := s.repo.UpsertFromProvider(ctx, domain.ProviderProfile{
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		PhotoURL:    strings.TrimSpace(photoURL),
	}, s.now())
	if err != nil {
		return nil, false, s.storeErr("upsertFromProvider", err)
	}
	metrics.Event(metrics.EventAccountUpserted)
	return a, created, nil
}

func (s *Service) UpdateProfile(ctx context.Context, email, displayName, photoURL string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return apperr.InvalidInput(msgEmailRequired)
	}
	ok, err := s.repo.UpdateProfile(ctx, email, strings.TrimSpace(displayName), strings.TrimSpace(photoURL), s.now())
	if err != nil {
		return s.storeErr("updateProfile", err)
	}
	if !ok {
		return apperr.NotFound(msgUserNotFound)
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, op, requester string) (*domain.Account, error) {
	a, err := s.find(ctx, op, requester)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin() {
		return nil, apperr.Forbidden(msgAdminOnly)
	}
	return a, nil
}

// List 仅管理员可见，按注册时间倒序
func (s *Service) List(ctx context.Context, requester string) ([]domain.Account, error) {
	if _, err := s.requireAdmin(ctx, "list", requester); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, domain.AccountQuery{})
	if err != nil {
		return nil, s.storeErr("list", err)
	}
	return items, nil
}

func (s *Service) Admins(ctx context.Context) ([]domain.Account, error) {
	items, err := s.repo.List(ctx, domain.AccountQuery{AdminsOnly: true})
	if err != nil {
		return nil, s.storeErr("admins", err)
	}
	return items, nil
}

// GrantAdmin 目标已是管理员时返回 changed=false，不算错误
func (s *Service) GrantAdmin(ctx context.Context, requester, target string) (changed bool, err error) {
	if _, err := s.requireAdmin(ctx, "grantAdmin", requester); err != nil {
		return false, err
	}
	target = utils.NormalizeEmail(target)
	if target == "" {
		return false, apperr.InvalidInput(msgEmailRequired)
	}
	t, err := s.find(ctx, "grantAdmin", target)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, apperr.NotFound(msgUserNotFound)
	}
	if t.IsAdmin() {
		return false, nil
	}
	if _, err := s.repo.SetRole(ctx, target, domain.RoleAdmin, s.now()); err != nil {
		return false, s.storeErr("grantAdmin", err)
	}
	metrics.Event(metrics.EventAdminGranted)
	s.log.Info("admin granted", zap.String("by", utils.NormalizeEmail(requester)), zap.String("target", target))
	return true, nil
}

// RevokeAdmin 每次调用都重新统计管理员数量。
// 统计与撤销之间没有原子保证，并发撤销两个管理员时可能短暂出现零管理员。
func (s *Service) RevokeAdmin(ctx context.Context, requester, target string) error {
	req, err := s.requireAdmin(ctx, "revokeAdmin", requester)
	if err != nil {
		return err
	}
	target = utils.NormalizeEmail(target)
	if target == "" {
		return apperr.InvalidInput(msgEmailRequired)
	}
	t, err := s.find(ctx, "revokeAdmin", target)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound(msgUserNotFound)
	}
	if !t.IsAdmin() {
		return apperr.InvalidState(msgNotAdmin)
	}
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return s.storeErr("revokeAdmin", err)
	}
	if n <= 1 {
		return apperr.LastAdmin(msgLastAdmin)
	}
	if req.ID == t.ID {
		return apperr.SelfRevoke(msgSelfRevoke)
	}
	if _, err := s.repo.SetRole(ctx, target, "", s.now()); err != nil {
		return s.storeErr("revokeAdmin", err)
	}
	metrics.Event(metrics.EventAdminRevoked)
	s.log.Info("admin revoked", zap.String("by", req.Email), zap.String("target", target))
	return nil
}

// BootstrapAdmin 运维命令：库里还没有管理员时提升第一个
func (s *Service) BootstrapAdmin(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return apperr.InvalidInput(msgEmailRequired)
	}
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return s.storeErr("bootstrapAdmin", err)
	}
	if n > 0 {
		return apperr.InvalidState(msgAdminExists)
	}
	ok, err := s.repo.SetRole(ctx, email, domain.RoleAdmin, s.now())
	if err != nil {
		return s.storeErr("bootstrapAdmin", err)
	}
	if !ok {
		return apperr.NotFound(msgUserNotFound)
	}
	metrics.Event(metrics.EventAdminGranted)
	s.log.Info("first admin bootstrapped", zap.String("email", email))
	return nil
}
