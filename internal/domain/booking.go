package domain

import (
	"context"
	"encoding/json"
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// 预订文档里由系统维护的键，调用方附加字段不能覆盖
var BookingReservedKeys = []string{"_id", "userId", "listingId", "houseId", "email", "status", "bookedAt"}

type Booking struct {
	ID        string
	UserID    string
	ListingID string
	Email     string
	Status    string
	BookedAt  time.Time
	Extra     map[string]any
}

func (b Booking) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(b.Extra)+6)
	for k, v := range b.Extra {
		m[k] = v
	}
	m["_id"] = b.ID
	m["userId"] = b.UserID
	m["listingId"] = b.ListingID
	m["email"] = b.Email
	m["status"] = b.Status
	m["bookedAt"] = b.BookedAt
	return json.Marshal(m)
}

type ListingCount struct {
	ListingID string `json:"listingId"`
	Count     int64  `json:"count"`
}

type BookingQuery struct {
	UserID string
	Email  string
	Newest bool // 按 bookedAt 倒序
	Limit  int
}

type BookingRepository interface {
	// Create 同一 (userId, listingId) 已存在时返回 ErrDuplicate
	Create(ctx context.Context, b *Booking) error
	Exists(ctx context.Context, userID, listingID string) (bool, error)
	List(ctx context.Context, q BookingQuery) ([]Booking, error)
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	Count(ctx context.Context) (int64, error)
	StatusHistogram(ctx context.Context) (map[string]int64, error)
	// Popular 按预订次数倒序的房源
	Popular(ctx context.Context, limit int) ([]ListingCount, error)
}
