package giftcard

import (
	"context"

	"institut/internal/domain"
)

// NotificationSender records that a notification is due; delivery belongs
// to the external dispatcher.
type NotificationSender interface {
	Emit(ctx context.Context, eventType string, userID int64, payload *domain.NotificationPayload)
}
