package loyalty

import (
	"context"

	"institut/internal/domain"
)

// UserReader provides the user names referral codes are derived from.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type NotificationSender interface {
	Emit(ctx context.Context, eventType string, userID int64, payload *domain.NotificationPayload)
}
