package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GiftCardStatus string

const (
	GiftCardActive    GiftCardStatus = "active"
	GiftCardUsed      GiftCardStatus = "used"
	GiftCardExpired   GiftCardStatus = "expired"
	GiftCardCancelled GiftCardStatus = "cancelled"
)

// GiftCard is a stored-value instrument redeemable against reservations.
// Balance only decreases while active; status flips to used at zero.
type GiftCard struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Code          string         `json:"code" gorm:"uniqueIndex;not null"`
	InitialAmount float64        `json:"initial_amount" validate:"required,gt=0"`
	Balance       float64        `json:"balance"`
	Status        GiftCardStatus `json:"status"`
	ExpiryDate    time.Time      `json:"expiry_date"`

	PurchaserID    *int64 `json:"purchaser_id,omitempty"`
	PurchasedFor   string `json:"purchased_for,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GiftCard) TableName() string { return "gift_cards" }

func (g *GiftCard) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// IsExpired compares against wall-clock now; stored status is not rewritten.
func (g *GiftCard) IsExpired(now time.Time) bool {
	return !g.ExpiryDate.IsZero() && g.ExpiryDate.Before(now)
}
