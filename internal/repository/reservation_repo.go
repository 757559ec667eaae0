package repository

import (
	"context"

	"gorm.io/gorm"

	"institut/internal/domain"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, time DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReservationRepository) ListByDate(ctx context.Context, date string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListConfirmedOn is the reminder feed: confirmed reservations on a date.
func (r *ReservationRepository) ListConfirmedOn(ctx context.Context, date string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).
		Where("date = ? AND status = ?", date, domain.ReservationConfirmed).
		Order("time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
