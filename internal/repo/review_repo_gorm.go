package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type GormReviewRepo struct{ db *gorm.DB }

func NewGormReviewRepo(db *gorm.DB) *GormReviewRepo { return &GormReviewRepo{db: db} }

func (r *GormReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = utils.NewID()
	}
	row := reviewRow{
		ID:        rv.ID,
		UserID:    rv.UserID,
		Text:      rv.Text,
		Rating:    rv.Rating,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *GormReviewRepo) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	var row reviewRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rv := row.toDomain()
	return &rv, nil
}

func (r *GormReviewRepo) List(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	tx := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Skip > 0 {
		tx = tx.Offset(q.Skip)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []reviewRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *GormReviewRepo) Count(ctx context.Context, userID string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&reviewRow{})
	if userID != "" {
		tx = tx.Where("user_id = ?", userID)
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

func (r *GormReviewRepo) Update(ctx context.Context, id string, p domain.ReviewPatch, now time.Time) (bool, error) {
	set := map[string]any{"updated_at": now}
	if p.Text != nil {
		set["reviewtext"] = *p.Text
	}
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	res := r.db.WithContext(ctx).Model(&reviewRow{}).Where("id = ?", id).Updates(set)
	return res.RowsAffected > 0, res.Error
}

func (r *GormReviewRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&reviewRow{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}
