package repo

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"greenhome/internal/domain"
)

// SQL 后端的表结构；id 与 Mongo 一致使用 24 位 ObjectID 字符串

type accountRow struct {
	ID             string     `gorm:"primaryKey;size:24"`
	Email          string     `gorm:"size:255;not null;uniqueIndex"`
	DisplayName    string     `gorm:"size:255"`
	PhotoURL       string     `gorm:"size:1024"`
	GoogleName     string     `gorm:"size:255"`
	GooglePhotoURL string     `gorm:"size:1024"`
	Role           string     `gorm:"size:16;index"`
	CreatedAt      time.Time  `gorm:"index"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false"`
}

func (accountRow) TableName() string { return "accounts" }

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:             r.ID,
		Email:          r.Email,
		DisplayName:    r.DisplayName,
		PhotoURL:       r.PhotoURL,
		GoogleName:     r.GoogleName,
		GooglePhotoURL: r.GooglePhotoURL,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      utcPtr(r.UpdatedAt),
	}
}

type listingRow struct {
	ID        string            `gorm:"primaryKey;size:24"`
	Fields    datatypes.JSONMap `gorm:"not null"`
	CreatedAt time.Time         `gorm:"index"`
}

func (listingRow) TableName() string { return "listings" }

func (r listingRow) toDomain() domain.Listing {
	f := map[string]any(r.Fields)
	if f == nil {
		f = map[string]any{}
	}
	return domain.Listing{ID: r.ID, Fields: f}
}

type bookingRow struct {
	ID        string            `gorm:"primaryKey;size:24"`
	UserID    string            `gorm:"size:24;not null;uniqueIndex:uniq_booking_user_listing"`
	ListingID string            `gorm:"size:64;not null;uniqueIndex:uniq_booking_user_listing;index"`
	Email     string            `gorm:"size:255;index"`
	Status    string            `gorm:"size:32;index"`
	BookedAt  time.Time         `gorm:"index"`
	Extra     datatypes.JSONMap ``
}

func (bookingRow) TableName() string { return "bookings" }

func (r bookingRow) toDomain() domain.Booking {
	var extra map[string]any
	if len(r.Extra) > 0 {
		extra = map[string]any(r.Extra)
	}
	return domain.Booking{
		ID:        r.ID,
		UserID:    r.UserID,
		ListingID: r.ListingID,
		Email:     r.Email,
		Status:    r.Status,
		BookedAt:  r.BookedAt.UTC(),
		Extra:     extra,
	}
}

type reviewRow struct {
	ID        string     `gorm:"primaryKey;size:24"`
	UserID    string     `gorm:"size:24;not null;index"`
	Text      string     `gorm:"column:reviewtext;type:text"`
	Rating    int        `gorm:"not null"`
	CreatedAt time.Time  `gorm:"index"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

func (reviewRow) TableName() string { return "reviews" }

func (r reviewRow) toDomain() domain.Review {
	return domain.Review{
		ID:        r.ID,
		UserID:    r.UserID,
		Text:      r.Text,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: utcPtr(r.UpdatedAt),
	}
}

type imageRow struct {
	ID          string `gorm:"primaryKey;size:24"`
	Name        string `gorm:"size:255"`
	ContentType string `gorm:"size:128"`
	Size        int64
	Data        []byte
	CreatedAt   time.Time `gorm:"index"`
}

func (imageRow) TableName() string { return "images" }

// GormModels AutoMigrate 用
func GormModels() []any {
	return []any{&accountRow{}, &listingRow{}, &bookingRow{}, &reviewRow{}, &imageRow{}}
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 个别驱动版本未实现错误翻译，按文案兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
