package notification

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"institut/internal/database"
	"institut/internal/domain"
	"institut/internal/repository"
)

// reminderSpec fires every evening at 18:00 server time.
const reminderSpec = "0 18 * * *"

// Reminder enqueues next-day appointment reminders. The outbox is checked
// before each insert, so re-running for the same day never duplicates an
// event for a reservation.
type Reminder struct {
	reservations *repository.ReservationRepository
	events       *repository.NotificationRepository
	cron         *cron.Cron
}

func NewReminder(reservations *repository.ReservationRepository, events *repository.NotificationRepository) *Reminder {
	return &Reminder{
		reservations: reservations,
		events:       events,
		cron:         cron.New(),
	}
}

func (r *Reminder) Start() error {
	_, err := r.cron.AddFunc(reminderSpec, func() {
		date := time.Now().AddDate(0, 0, 1).Format(domain.DateFormat)
		n, err := r.EnqueueForDate(context.Background(), date)
		if err != nil {
			log.Printf("reminder: enqueue for %s failed: %v", date, err)
			return
		}
		log.Printf("reminder: enqueued %d reminders for %s", n, date)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reminder) Stop() {
	r.cron.Stop()
}

// EnqueueForDate writes one reminder event per confirmed reservation on
// the given date, skipping reservations already reminded.
func (r *Reminder) EnqueueForDate(ctx context.Context, date string) (int, error) {
	list, err := r.reservations.ListConfirmedOn(ctx, date)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for i := range list {
		res := &list[i]

		exists, err := r.events.ExistsReminder(ctx, res.ID, res.Date)
		if err != nil {
			return enqueued, err
		}
		if exists {
			continue
		}

		payload := domain.NotificationPayload{
			ReservationID: &res.ID,
			Date:          res.Date,
			Time:          res.Time,
		}
		ev := domain.NotificationEvent{
			Type:          domain.NotifyReservationReminder,
			UserID:        res.UserID,
			ReservationID: &res.ID,
			Date:          res.Date,
			Payload:       payload.Encode(),
		}
		if err := r.events.Create(ctx, &ev); err != nil {
			// another sweep got there first; the unique index on
			// (reservation_id, date) is the real guard
			if database.IsUniqueViolation(err) {
				continue
			}
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}
