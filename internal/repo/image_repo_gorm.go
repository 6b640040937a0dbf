package repo

import (
	"bytes"
	"context"
	"errors"
	"io"

	"gorm.io/gorm"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

// GormImageRepo 图片内容直接存 BLOB 列，单张大小已由上传层限制
type GormImageRepo struct{ db *gorm.DB }

func NewGormImageRepo(db *gorm.DB) *GormImageRepo { return &GormImageRepo{db: db} }

func (r *GormImageRepo) Save(ctx context.Context, img *domain.Image, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	row := imageRow{
		ID:          utils.NewID(),
		Name:        img.Name,
		ContentType: img.ContentType,
		Size:        int64(len(data)),
		Data:        data,
		CreatedAt:   img.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	img.ID, img.Size = row.ID, row.Size
	return nil
}

func (r *GormImageRepo) List(ctx context.Context) ([]domain.Image, error) {
	var rows []imageRow
	err := r.db.WithContext(ctx).
		Select("id", "name", "content_type", "size", "created_at").
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Image, 0, len(rows))
	for _, row := range rows {
		out = append(out, imageOf(row))
	}
	return out, nil
}

func (r *GormImageRepo) Open(ctx context.Context, id string) (*domain.Image, io.ReadCloser, error) {
	var row imageRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	img := imageOf(row)
	return &img, io.NopCloser(bytes.NewReader(row.Data)), nil
}

func imageOf(row imageRow) domain.Image {
	return domain.Image{
		ID:          row.ID,
		Name:        row.Name,
		ContentType: row.ContentType,
		Size:        row.Size,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}
