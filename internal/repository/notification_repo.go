package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"institut/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, ev *domain.NotificationEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]domain.NotificationEvent, error) {
	var out []domain.NotificationEvent
	q := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) MarkDispatched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.NotificationEvent{}).
		Where("id IN ? AND dispatched_at IS NULL", ids).
		Update("dispatched_at", now).Error
}

// ExistsReminder guards the daily reminder enqueue against double-runs.
func (r *NotificationRepository) ExistsReminder(ctx context.Context, reservationID int64, date string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.NotificationEvent{}).
		Where("type = ? AND reservation_id = ? AND date = ?",
			domain.NotifyReservationReminder, reservationID, date).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}
