package notification

import (
	"context"
	"log"

	"institut/internal/domain"
	"institut/internal/repository"
)

// Service is the outbox writer. Business modules call Emit after their
// transaction commits; the row is what guarantees eventual delivery, the
// hub push is only a latency optimization for connected dispatchers.
type Service struct {
	repo *repository.NotificationRepository
	hub  *Hub
}

func NewService(repo *repository.NotificationRepository, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

func (s *Service) Emit(ctx context.Context, eventType string, userID int64, payload *domain.NotificationPayload) {
	ev := domain.NotificationEvent{
		Type:   eventType,
		UserID: userID,
	}
	if payload != nil {
		ev.ReservationID = payload.ReservationID
		ev.Date = payload.Date
		ev.Payload = payload.Encode()
	}

	if err := s.repo.Create(ctx, &ev); err != nil {
		log.Printf("notification: failed to enqueue %s for user %d: %v", eventType, userID, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(ev)
	}
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.NotificationEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListPending(ctx, limit)
}

func (s *Service) Ack(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkDispatched(ctx, ids)
}
