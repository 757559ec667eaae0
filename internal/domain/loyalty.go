package domain

import "time"

type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

// Cumulative spend thresholds for tier computation.
const (
	SilverThreshold   = 200.0
	GoldThreshold     = 500.0
	PlatinumThreshold = 1000.0
)

// TierForSpend derives the tier from cumulative spend.
func TierForSpend(totalSpent float64) LoyaltyTier {
	switch {
	case totalSpent >= PlatinumThreshold:
		return TierPlatinum
	case totalSpent >= GoldThreshold:
		return TierGold
	case totalSpent >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

func tierRank(t LoyaltyTier) int {
	switch t {
	case TierPlatinum:
		return 3
	case TierGold:
		return 2
	case TierSilver:
		return 1
	default:
		return 0
	}
}

// LoyaltyProfile accumulates a client's visit counters, spend and referral
// state. One row per user.
type LoyaltyProfile struct {
	ID                      int64       `json:"id"`
	UserID                  int64       `json:"user_id" gorm:"uniqueIndex;not null"`
	Points                  int         `json:"points"`
	IndividualServicesCount int         `json:"individual_services_count"`
	PackagesCount           int         `json:"packages_count"`
	TotalSpent              float64     `json:"total_spent"`
	Tier                    LoyaltyTier `json:"tier"`

	// Uniqueness is enforced by a partial index created in Migrate, so any
	// number of profiles may coexist before their code is assigned.
	ReferralCode   string    `json:"referral_code,omitempty"`
	ReferredBy     string    `json:"referred_by,omitempty"` // referral code of the sponsor, set at most once
	TotalReferrals int       `json:"total_referrals"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ApplyTier recomputes the tier from TotalSpent. The tier never regresses
// on its own even if spend accounting is later corrected downward.
func (p *LoyaltyProfile) ApplyTier() {
	next := TierForSpend(p.TotalSpent)
	if tierRank(next) > tierRank(p.Tier) {
		p.Tier = next
	} else if p.Tier == "" {
		p.Tier = next
	}
}
