package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Reservation is a client appointment occupying one (date, time) slot.
// At most one reservation with an active status may hold a given slot;
// the partial unique index on (date, time) enforces this at the store.
type Reservation struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id" validate:"required"`
	Date          string            `json:"date" validate:"required"` // YYYY-MM-DD
	Time          string            `json:"time" validate:"required"` // HH:MM
	Services      datatypes.JSON    `json:"services"`                 // []int64 service IDs
	TotalPrice    float64           `json:"total_price"`
	Status        ReservationStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`

	GiftCardID         *uuid.UUID `json:"gift_card_id,omitempty" gorm:"type:uuid"`
	GiftCardUsedAmount float64    `json:"gift_card_used_amount,omitempty"`
	DiscountID         *uuid.UUID `json:"discount_id,omitempty" gorm:"type:uuid"`

	Notes       string     `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// IsActive reports whether the reservation still occupies its slot.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

func (r *Reservation) CanBeCancelled() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

func ValidReservationStatus(s string) bool {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentPartial, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}
