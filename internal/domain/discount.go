package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscountStatus string

const (
	DiscountPending   DiscountStatus = "pending"
	DiscountAvailable DiscountStatus = "available"
	DiscountUsed      DiscountStatus = "used"
	DiscountPostponed DiscountStatus = "postponed"
	DiscountExpired   DiscountStatus = "expired"
)

type DiscountType string

const (
	DiscountReferralReferred DiscountType = "referral_referred"
	DiscountReferralSponsor  DiscountType = "referral_sponsor"
	DiscountTypePostponed    DiscountType = "postponed"
	DiscountLoyaltyMilestone DiscountType = "loyalty_milestone"
	DiscountManual           DiscountType = "manual"
)

// Discount is a single-use reward grant. It is consumed whole by exactly
// one reservation. Postponement never edits expiry in place: it marks the
// original postponed and creates a linked successor, keeping the chain as
// an audit trail.
type Discount struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    int64          `json:"user_id" gorm:"index;not null"`
	Type      DiscountType   `json:"type"`
	Amount    float64        `json:"amount" validate:"required,gt=0"`
	Status    DiscountStatus `json:"status"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`

	PostponedFrom *uuid.UUID `json:"postponed_from,omitempty" gorm:"type:uuid"`
	PostponedTo   *uuid.UUID `json:"postponed_to,omitempty" gorm:"type:uuid"`
	ReservationID *int64     `json:"reservation_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Discount) TableName() string { return "discounts" }

func (d *Discount) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// IsExpired is the read-time expiry rule. An expired discount must never be
// offered as usable even while its stored status still says available.
func (d *Discount) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// IsUsable reports whether the discount can be consumed right now.
func (d *Discount) IsUsable(now time.Time) bool {
	return d.Status == DiscountAvailable && !d.IsExpired(now)
}
