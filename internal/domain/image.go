package domain

import (
	"context"
	"io"
	"time"
)

type Image struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	URL         string    `json:"url,omitempty"`
}

type ImageRepository interface {
	// Save 写入内容并回填 img.ID
	Save(ctx context.Context, img *Image, content io.Reader) error
	// List 按 createdAt 倒序
	List(ctx context.Context) ([]Image, error)
	// Open 不存在时返回 (nil, nil, nil)；调用方负责关闭
	Open(ctx context.Context, id string) (*Image, io.ReadCloser, error)
}
