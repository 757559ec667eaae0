package discount

import (
	"context"

	"institut/internal/domain"
)

type NotificationSender interface {
	Emit(ctx context.Context, eventType string, userID int64, payload *domain.NotificationPayload)
}
