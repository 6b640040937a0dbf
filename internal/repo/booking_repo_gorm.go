package repo

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

type GormBookingRepo struct{ db *gorm.DB }

func NewGormBookingRepo(db *gorm.DB) *GormBookingRepo { return &GormBookingRepo{db: db} }

func (r *GormBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = utils.NewID()
	}
	row := bookingRow{
		ID:        b.ID,
		UserID:    b.UserID,
		ListingID: b.ListingID,
		Email:     b.Email,
		Status:    b.Status,
		BookedAt:  b.BookedAt,
	}
	if len(b.Extra) > 0 {
		row.Extra = datatypes.JSONMap(cloneMap(b.Extra))
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormBookingRepo) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *GormBookingRepo) List(ctx context.Context, q domain.BookingQuery) ([]domain.Booking, error) {
	tx := r.db.WithContext(ctx)
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Email != "" {
		tx = tx.Where("email = ?", q.Email)
	}
	if q.Newest {
		tx = tx.Order("booked_at DESC").Order("id DESC")
	} else {
		tx = tx.Order("booked_at").Order("id")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []bookingRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *GormBookingRepo) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&bookingRow{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}
	// MySQL 值未变化时 RowsAffected 为 0，再确认一次是否存在
	var n int64
	err := r.db.WithContext(ctx).Model(&bookingRow{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *GormBookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&bookingRow{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *GormBookingRepo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&bookingRow{}, "email = ?", email)
	return res.RowsAffected, res.Error
}

func (r *GormBookingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&bookingRow{}).Count(&n).Error
	return n, err
}

func (r *GormBookingRepo) StatusHistogram(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&bookingRow{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *GormBookingRepo) Popular(ctx context.Context, limit int) ([]domain.ListingCount, error) {
	tx := r.db.WithContext(ctx).Model(&bookingRow{}).
		Select("listing_id, count(*) AS count").
		Group("listing_id").
		Order("count DESC").Order("listing_id")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []struct {
		ListingID string
		Count     int64
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ListingCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ListingCount{ListingID: row.ListingID, Count: row.Count})
	}
	return out, nil
}
