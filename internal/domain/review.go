package domain

import (
	"context"
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewTextLen = 1000
)

type Review struct {
	ID        string     `json:"_id"`
	UserID    string     `json:"userId"`
	Text      string     `json:"reviewtext"`
	Rating    int        `json:"rating"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Reviewer 评价展示用的作者信息
type Reviewer struct {
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

type ReviewView struct {
	Review
	User Reviewer `json:"user"`
}

// ReviewPatch nil 表示不修改
type ReviewPatch struct {
	Text   *string
	Rating *int
}

type ReviewQuery struct {
	UserID string
	Skip   int
	Limit  int
}

type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	FindByID(ctx context.Context, id string) (*Review, error)
	// List 按 createdAt 倒序
	List(ctx context.Context, q ReviewQuery) ([]Review, error)
	// Count userID 为空时统计全部
	Count(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, id string, p ReviewPatch, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
