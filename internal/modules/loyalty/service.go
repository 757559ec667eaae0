package loyalty

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"institut/internal/database"
	"institut/internal/domain"
	"institut/internal/modules/discount"
)

const (
	codeAttempts = 5

	// Every N-th completed individual service earns a milestone reward.
	milestoneEvery  = 5
	milestoneReward = 10.0
)

type Service struct {
	db     *gorm.DB
	users  UserReader
	notifs NotificationSender
}

func NewService(db *gorm.DB, users UserReader, notifs NotificationSender) *Service {
	return &Service{db: db, users: users, notifs: notifs}
}

// GetProfile returns the user's loyalty profile, creating it on first
// request and assigning the referral code lazily on first need.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*domain.LoyaltyProfile, error) {
	profile, err := s.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.ReferralCode == "" {
		return s.ensureReferralCode(ctx, userID)
	}
	return profile, nil
}

func (s *Service) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.LoyaltyProfile, error) {
	var profile domain.LoyaltyProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = domain.LoyaltyProfile{UserID: userID, Tier: domain.TierBronze}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if database.IsUniqueViolation(err) {
			err = s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
			if err != nil {
				return nil, err
			}
			return &profile, nil
		}
		return nil, err
	}
	return &profile, nil
}

// ensureReferralCode assigns a globally unique code derived from the user's
// name, retrying against the unique constraint on collision.
func (s *Service) ensureReferralCode(ctx context.Context, userID int64) (*domain.LoyaltyProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var profile domain.LoyaltyProfile

	for attempt := 0; attempt < codeAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := getOrCreateProfileForUpdate(tx, userID, &profile); err != nil {
				return err
			}
			if profile.ReferralCode != "" {
				return nil
			}

			profile.ReferralCode = referralCodeFor(user.Name)
			return tx.Model(&domain.LoyaltyProfile{}).
				Where("id = ?", profile.ID).
				Update("referral_code", profile.ReferralCode).Error
		})
		if err == nil {
			return &profile, nil
		}
		if database.IsUniqueViolation(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrCodeExhausted
}

// RedeemReferralCode links a new user to a sponsor, exactly once: the
// referred user gets an immediately available reward, the sponsor a pending
// one that activates on the referred user's first paid reservation.
func (s *Service) RedeemReferralCode(ctx context.Context, newUserID int64, code string) (*domain.Referral, *domain.Discount, error) {
	var (
		referral       domain.Referral
		referredReward *domain.Discount
		sponsorReward  *domain.Discount
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile domain.LoyaltyProfile
		if err := getOrCreateProfileForUpdate(tx, newUserID, &profile); err != nil {
			return err
		}
		if profile.ReferredBy != "" {
			return ErrAlreadyReferred
		}

		var sponsor domain.LoyaltyProfile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("referral_code = ?", code).
			First(&sponsor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}
		if sponsor.UserID == newUserID {
			return ErrInvalidCode
		}

		referredReward, err = discount.GrantInTx(tx, newUserID, domain.DiscountReferralReferred, domain.DefaultReferralReward, domain.DiscountAvailable, nil)
		if err != nil {
			return err
		}
		sponsorReward, err = discount.GrantInTx(tx, sponsor.UserID, domain.DiscountReferralSponsor, domain.DefaultReferralReward, domain.DiscountPending, nil)
		if err != nil {
			return err
		}

		referral = domain.Referral{
			ReferrerUserID:    sponsor.UserID,
			ReferredUserID:    newUserID,
			ReferralCode:      code,
			Status:            domain.ReferralUsed,
			RewardAmount:      domain.DefaultReferralReward,
			SponsorDiscountID: &sponsorReward.ID,
		}
		if err := tx.Create(&referral).Error; err != nil {
			// unique index on referred_user_id closes the double-submit race
			if database.IsUniqueViolation(err) {
				return ErrAlreadyReferred
			}
			return err
		}

		if err := tx.Model(&domain.LoyaltyProfile{}).
			Where("id = ?", profile.ID).
			Update("referred_by", code).Error; err != nil {
			return err
		}

		return tx.Model(&domain.LoyaltyProfile{}).
			Where("id = ?", sponsor.ID).
			Update("total_referrals", gorm.Expr("total_referrals + 1")).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if s.notifs != nil {
		s.notifs.Emit(ctx, domain.NotifyDiscountGranted, referredReward.UserID, &domain.NotificationPayload{
			DiscountID: referredReward.ID.String(),
			Amount:     &referredReward.Amount,
		})
		s.notifs.Emit(ctx, domain.NotifyDiscountGranted, sponsorReward.UserID, &domain.NotificationPayload{
			DiscountID: sponsorReward.ID.String(),
			Amount:     &sponsorReward.Amount,
		})
	}

	return &referral, referredReward, nil
}

// ActivateReferralRewardInTx runs inside the payment-callback transaction.
// If the paying user was referred and the referral is still unrewarded, the
// sponsor's pending discount becomes available and the referral flips to
// rewarded. A user with no open referral is a no-op, which also makes the
// paid-callback replay safe.
func (s *Service) ActivateReferralRewardInTx(tx *gorm.DB, referredUserID int64) (*domain.Discount, error) {
	var ref domain.Referral
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referred_user_id = ? AND status = ?", referredUserID, domain.ReferralUsed).
		First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var activated *domain.Discount
	if ref.SponsorDiscountID != nil {
		activated, err = discount.ActivateInTx(tx, *ref.SponsorDiscountID)
		if err != nil && !errors.Is(err, discount.ErrInvalidTransition) && !errors.Is(err, discount.ErrNotFound) {
			return nil, err
		}
	}

	err = tx.Model(&domain.Referral{}).
		Where("id = ?", ref.ID).
		Update("status", domain.ReferralRewarded).Error
	if err != nil {
		return nil, err
	}

	return activated, nil
}

// RecordCompletedServiceInTx accrues counters, spend, points and the tier
// for a completed paid appointment, and grants the milestone reward when
// the individual-services counter crosses a multiple of milestoneEvery.
func (s *Service) RecordCompletedServiceInTx(tx *gorm.DB, userID int64, individual, packages int, amountSpent float64) (*domain.LoyaltyProfile, *domain.Discount, error) {
	var profile domain.LoyaltyProfile
	if err := getOrCreateProfileForUpdate(tx, userID, &profile); err != nil {
		return nil, nil, err
	}

	before := profile.IndividualServicesCount

	profile.IndividualServicesCount += individual
	profile.PackagesCount += packages
	profile.TotalSpent += amountSpent
	profile.Points += int(amountSpent)
	profile.ApplyTier()

	err := tx.Model(&domain.LoyaltyProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"individual_services_count": profile.IndividualServicesCount,
			"packages_count":            profile.PackagesCount,
			"total_spent":               profile.TotalSpent,
			"points":                    profile.Points,
			"tier":                      profile.Tier,
		}).Error
	if err != nil {
		return nil, nil, err
	}

	var milestone *domain.Discount
	if before/milestoneEvery < profile.IndividualServicesCount/milestoneEvery {
		milestone, err = discount.GrantInTx(tx, userID, domain.DiscountLoyaltyMilestone, milestoneReward, domain.DiscountAvailable, nil)
		if err != nil {
			return nil, nil, err
		}
	}

	return &profile, milestone, nil
}

func getOrCreateProfileForUpdate(tx *gorm.DB, userID int64, profile *domain.LoyaltyProfile) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	*profile = domain.LoyaltyProfile{UserID: userID, Tier: domain.TierBronze}
	if err := tx.Create(profile).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).
				First(profile).Error
		}
		return err
	}
	return nil
}
