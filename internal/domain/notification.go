package domain

import (
	"encoding/json"
	"time"
)

// Notification event types emitted for the external dispatcher.
const (
	NotifyReservationCreated   = "reservation.created"
	NotifyReservationConfirmed = "reservation.confirmed"
	NotifyReservationCancelled = "reservation.cancelled"
	NotifyReservationReminder  = "reservation.reminder"
	NotifyDiscountGranted      = "discount.granted"
	NotifyDiscountActivated    = "discount.activated"
	NotifyGiftCardIssued       = "giftcard.issued"
)

// NotificationEvent is an outbox row. The core only records that a
// notification is due; delivery belongs to the external dispatcher, which
// consumes the outbox and acks via DispatchedAt.
type NotificationEvent struct {
	ID     int64  `json:"id"`
	Type   string `json:"type" gorm:"index;not null"`
	UserID int64  `json:"user_id" gorm:"index"`

	// Set on reservation-scoped events. A partial unique index on
	// (reservation_id, date) keeps the daily reminder sweep idempotent.
	ReservationID *int64 `json:"reservation_id,omitempty"`
	Date          string `json:"date,omitempty"`

	Payload      string     `json:"payload" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}

// NotificationPayload holds structured event metadata.
type NotificationPayload struct {
	ReservationID *int64                 `json:"reservation_id,omitempty"`
	GiftCardCode  string                 `json:"gift_card_code,omitempty"`
	DiscountID    string                 `json:"discount_id,omitempty"`
	Amount        *float64               `json:"amount,omitempty"`
	Date          string                 `json:"date,omitempty"`
	Time          string                 `json:"time,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

// Encode marshals the payload for storage.
func (p *NotificationPayload) Encode() string {
	data, _ := json.Marshal(p)
	return string(data)
}
