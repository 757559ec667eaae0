package loyalty

import "institut/internal/domain"

type RedeemReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

type ProfileResponse struct {
	UserID                  int64   `json:"user_id"`
	Points                  int     `json:"points"`
	IndividualServicesCount int     `json:"individual_services_count"`
	PackagesCount           int     `json:"packages_count"`
	TotalSpent              float64 `json:"total_spent"`
	Tier                    string  `json:"tier"`
	ReferralCode            string  `json:"referral_code"`
	ReferredBy              string  `json:"referred_by,omitempty"`
	TotalReferrals          int     `json:"total_referrals"`
}

type RedeemReferralResponse struct {
	DiscountID string  `json:"discount_id"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
}

func toProfileResponse(p *domain.LoyaltyProfile) ProfileResponse {
	return ProfileResponse{
		UserID:                  p.UserID,
		Points:                  p.Points,
		IndividualServicesCount: p.IndividualServicesCount,
		PackagesCount:           p.PackagesCount,
		TotalSpent:              p.TotalSpent,
		Tier:                    string(p.Tier),
		ReferralCode:            p.ReferralCode,
		ReferredBy:              p.ReferredBy,
		TotalReferrals:          p.TotalReferrals,
	}
}
