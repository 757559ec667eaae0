package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralStatus string

const (
	ReferralUsed     ReferralStatus = "used"
	ReferralRewarded ReferralStatus = "rewarded"
)

// DefaultReferralReward is the amount granted to both sides of a referral.
const DefaultReferralReward = 15.0

// Referral records one redemption of a referral code. Created when the
// referred user redeems; flips to rewarded when the sponsor's pending
// discount is activated by the referred user's first paid reservation.
type Referral struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ReferrerUserID int64          `json:"referrer_user_id" gorm:"index;not null"`
	ReferredUserID int64          `json:"referred_user_id" gorm:"uniqueIndex;not null"`
	ReferralCode   string         `json:"referral_code"`
	Status         ReferralStatus `json:"status"`
	RewardAmount   float64        `json:"reward_amount"`

	// SponsorDiscountID points at the sponsor's pending grant so the
	// activation trigger knows exactly which discount to flip.
	SponsorDiscountID *uuid.UUID `json:"sponsor_discount_id,omitempty" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Referral) TableName() string { return "referrals" }

func (r *Referral) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
