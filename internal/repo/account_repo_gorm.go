package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type GormAccountRepo struct{ db *gorm.DB }

func NewGormAccountRepo(db *gorm.DB) *GormAccountRepo { return &GormAccountRepo{db: db} }

func (r *GormAccountRepo) first(ctx context.Context, email string) (*accountRow, error) {
	var row accountRow
	err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormAccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row, err := r.first(ctx, email)
	if row == nil || err != nil {
		return nil, err
	}
	a := row.toDomain()
	return &a, nil
}

func (r *GormAccountRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []accountRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *GormAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	row := accountRow{
		ID:             utils.NewID(),
		Email:          a.Email,
		DisplayName:    a.DisplayName,
		PhotoURL:       a.PhotoURL,
		GoogleName:     a.GoogleName,
		GooglePhotoURL: a.GooglePhotoURL,
		Role:           a.Role,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	a.ID = row.ID
	return nil
}

func (r *GormAccountRepo) UpsertFromProvider(ctx context.Context, p domain.ProviderProfile, now time.Time) (*domain.Account, bool, error) {
	row, err := r.first(ctx, p.Email)
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		row = &accountRow{
			ID:             utils.NewID(),
			Email:          p.Email,
			DisplayName:    p.DisplayName,
			PhotoURL:       p.PhotoURL,
			GoogleName:     p.DisplayName,
			GooglePhotoURL: p.PhotoURL,
			CreatedAt:      now,
		}
		err := r.db.WithContext(ctx).Create(row).Error
		if err == nil {
			out := row.toDomain()
			return &out, true, nil
		}
		if !isDupKey(err) {
			return nil, false, err
		}
		// 并发首登：另一请求已插入同邮箱，改为刷新那一行
		if row, err = r.first(ctx, p.Email); err != nil {
			return nil, false, err
		}
		if row == nil {
			return nil, false, errors.New("account missing after duplicate insert")
		}
	}
	// 只刷新影子字段，用户自己改过的展示名/头像保持不变
	if err := r.db.WithContext(ctx).Model(&accountRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"google_name":      p.DisplayName,
		"google_photo_url": p.PhotoURL,
	}).Error; err != nil {
		return nil, false, err
	}
	row.GoogleName, row.GooglePhotoURL = p.DisplayName, p.PhotoURL
	out := row.toDomain()
	return &out, false, nil
}

func (r *GormAccountRepo) UpdateProfile(ctx context.Context, email, displayName, photoURL string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&accountRow{}).Where("email = ?", email).Updates(map[string]any{
		"display_name": displayName,
		"photo_url":    photoURL,
		"updated_at":   now,
	})
	return res.RowsAffected > 0, res.Error
}

func (r *GormAccountRepo) SetRole(ctx context.Context, email, role string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&accountRow{}).Where("email = ?", email).Updates(map[string]any{
		"role":       role,
		"updated_at": now,
	})
	return res.RowsAffected > 0, res.Error
}

func (r *GormAccountRepo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&accountRow{}).Where("role = ?", domain.RoleAdmin).Count(&n).Error
	return n, err
}

func (r *GormAccountRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&accountRow{}).Count(&n).Error
	return n, err
}

func (r *GormAccountRepo) List(ctx context.Context, q domain.AccountQuery) ([]domain.Account, error) {
	tx := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if q.AdminsOnly {
		tx = tx.Where("role = ?", domain.RoleAdmin)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []accountRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
