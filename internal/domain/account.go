package domain

import (
	"context"
	"time"
)

const RoleAdmin = "admin"

// Account 以小写 email 为唯一键；Role 只有 "admin" 或空（普通用户）
type Account struct {
	ID             string     `json:"_id"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"displayName"`
	PhotoURL       string     `json:"photoURL"`
	GoogleName     string     `json:"googleName,omitempty"`
	GooglePhotoURL string     `json:"googlePhotoUrl,omitempty"`
	Role           string     `json:"role,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

func (a *Account) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// ProviderProfile 身份提供方回传的展示信息
type ProviderProfile struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

type AccountQuery struct {
	AdminsOnly bool
	Limit      int // 0 = 不限
}

// AccountRepository 查不到时返回 (nil, nil)；email 参数已小写
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByIDs(ctx context.Context, ids []string) ([]Account, error)
	// Create email 冲突返回 ErrDuplicate
	Create(ctx context.Context, a *Account) error
	// UpsertFromProvider 不存在则新建（展示字段取提供方的值），存在则只刷新 google* 影子字段
	UpsertFromProvider(ctx context.Context, p ProviderProfile, now time.Time) (acc *Account, created bool, err error)
	UpdateProfile(ctx context.Context, email, displayName, photoURL string, now time.Time) (matched bool, err error)
	// SetRole role 为空表示移除角色字段
	SetRole(ctx context.Context, email, role string, now time.Time) (matched bool, err error)
	CountAdmins(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	// List 按 createdAt 倒序
	List(ctx context.Context, q AccountQuery) ([]Account, error)
}
