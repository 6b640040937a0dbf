package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type GormListingRepo struct{ db *gorm.DB }

func NewGormListingRepo(db *gorm.DB) *GormListingRepo { return &GormListingRepo{db: db} }

func listingsOf(rows []listingRow) []domain.Listing {
	out := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func (r *GormListingRepo) List(ctx context.Context) ([]domain.Listing, error) {
	var rows []listingRow
	if err := r.db.WithContext(ctx).Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return listingsOf(rows), nil
}

func (r *GormListingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var row listingRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l := row.toDomain()
	return &l, nil
}

func (r *GormListingRepo) Create(ctx context.Context, fields map[string]any) (string, error) {
	f := cloneMap(fields)
	if f == nil {
		f = map[string]any{}
	}
	delete(f, "_id")
	row := listingRow{ID: utils.NewID(), Fields: datatypes.JSONMap(f), CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// Update JSON 列没有跨方言的局部更新语法，读出来合并后整列写回
func (r *GormListingRepo) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row listingRow
		err := tx.First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		merged := map[string]any(row.Fields)
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range fields {
			if k == "_id" {
				continue
			}
			merged[k] = cloneValue(v)
		}
		return tx.Model(&row).Update("fields", datatypes.JSONMap(merged)).Error
	})
	return found, err
}

func (r *GormListingRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&listingRow{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *GormListingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&listingRow{}).Count(&n).Error
	return n, err
}

func (r *GormListingRepo) ListExcluding(ctx context.Context, ids []string, limit int) ([]domain.Listing, error) {
	tx := r.db.WithContext(ctx).Order("created_at").Order("id")
	if len(ids) > 0 {
		tx = tx.Where("id NOT IN ?", ids)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []listingRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return listingsOf(rows), nil
}
