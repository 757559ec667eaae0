package reservation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"institut/internal/domain"
)

// SlotChecker re-validates slot availability inside the booking transaction.
type SlotChecker interface {
	CheckSlotTx(tx *gorm.DB, date, timeStr string, excludeID int64) error
}

// DiscountConsumer burns a discount inside the booking transaction and
// links it to the created reservation.
type DiscountConsumer interface {
	ConsumeInTx(tx *gorm.DB, id uuid.UUID, userID int64) (*domain.Discount, error)
	AttachReservationInTx(tx *gorm.DB, id uuid.UUID, reservationID int64) error
}

// GiftCardRedeemer debits a gift card inside the booking transaction.
type GiftCardRedeemer interface {
	RedeemInTx(tx *gorm.DB, code string, requested float64) (*domain.GiftCard, float64, bool, error)
}

// LoyaltyRecorder receives payment and completion signals.
type LoyaltyRecorder interface {
	ActivateReferralRewardInTx(tx *gorm.DB, referredUserID int64) (*domain.Discount, error)
	RecordCompletedServiceInTx(tx *gorm.DB, userID int64, individual, packages int, amountSpent float64) (*domain.LoyaltyProfile, *domain.Discount, error)
}

type NotificationSender interface {
	Emit(ctx context.Context, eventType string, userID int64, payload *domain.NotificationPayload)
}
