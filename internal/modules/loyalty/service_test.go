package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"institut/internal/database"
	"institut/internal/domain"
)

type fakeUsers struct {
	names map[int64]string
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &domain.User{ID: id, Name: name}, nil
}

type fakeNotifier struct {
	types []string
}

func (f *fakeNotifier) Emit(_ context.Context, eventType string, _ int64, _ *domain.NotificationPayload) {
	f.types = append(f.types, eventType)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	users := &fakeUsers{names: map[int64]string{1: "Laia", 2: "Camille", 3: "N"}}
	return NewService(db, users, &fakeNotifier{}), db
}

func TestGetProfile_AssignsReferralCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Tier != domain.TierBronze {
		t.Errorf("new profile should start bronze, got %s", profile.Tier)
	}
	if !strings.HasPrefix(profile.ReferralCode, "LAIA") {
		t.Errorf("expected LAIA prefix, got %q", profile.ReferralCode)
	}
	if len(profile.ReferralCode) != len("LAIA")+codeSuffixLen {
		t.Errorf("unexpected code length: %q", profile.ReferralCode)
	}

	// the code is assigned once and then stable
	again, err := svc.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if again.ReferralCode != profile.ReferralCode {
		t.Errorf("referral code changed between reads: %q vs %q", again.ReferralCode, profile.ReferralCode)
	}
}

func TestGetOrCreateProfile_SeveralCodelessUsers(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// profiles are created without a code; the blank value must not
	// collide between users
	first, err := svc.GetOrCreateProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetOrCreateProfile user 1: %v", err)
	}
	second, err := svc.GetOrCreateProfile(ctx, 2)
	if err != nil {
		t.Fatalf("GetOrCreateProfile user 2: %v", err)
	}
	if first.ReferralCode != "" || second.ReferralCode != "" {
		t.Errorf("fresh profiles should have no code: %q, %q", first.ReferralCode, second.ReferralCode)
	}
	if first.ID == second.ID {
		t.Errorf("expected two distinct profiles, got id %d twice", first.ID)
	}

	// the in-transaction creation path must tolerate a code-less
	// neighbour as well
	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.RecordCompletedServiceInTx(tx, 3, 1, 0, 50)
		return err
	})
	if err != nil {
		t.Fatalf("RecordCompletedServiceInTx user 3: %v", err)
	}

	// assigned codes are still unique
	p1, err := svc.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile user 1: %v", err)
	}
	p2, err := svc.GetProfile(ctx, 2)
	if err != nil {
		t.Fatalf("GetProfile user 2: %v", err)
	}
	if p1.ReferralCode == "" || p1.ReferralCode == p2.ReferralCode {
		t.Errorf("expected distinct codes, got %q and %q", p1.ReferralCode, p2.ReferralCode)
	}
}

func TestReferralCode_ShortName(t *testing.T) {
	svc, _ := newTestService(t)

	profile, err := svc.GetProfile(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !strings.HasPrefix(profile.ReferralCode, "N") {
		t.Errorf("expected name prefix, got %q", profile.ReferralCode)
	}
}

func TestRedeemReferralCode(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	sponsor, err := svc.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}

	referral, reward, err := svc.RedeemReferralCode(ctx, 2, sponsor.ReferralCode)
	if err != nil {
		t.Fatalf("RedeemReferralCode: %v", err)
	}

	if referral.Status != domain.ReferralUsed {
		t.Errorf("expected referral status used, got %s", referral.Status)
	}
	if referral.ReferrerUserID != 1 || referral.ReferredUserID != 2 {
		t.Errorf("unexpected referral parties: %d -> %d", referral.ReferrerUserID, referral.ReferredUserID)
	}
	if reward.Status != domain.DiscountAvailable || reward.Amount != domain.DefaultReferralReward {
		t.Errorf("referred reward should be immediately available for %v, got %s/%v", domain.DefaultReferralReward, reward.Status, reward.Amount)
	}

	if referral.SponsorDiscountID == nil {
		t.Fatal("referral must point at the sponsor's grant")
	}
	var sponsorReward domain.Discount
	if err := db.First(&sponsorReward, "id = ?", *referral.SponsorDiscountID).Error; err != nil {
		t.Fatalf("load sponsor reward: %v", err)
	}
	if sponsorReward.UserID != 1 || sponsorReward.Status != domain.DiscountPending {
		t.Errorf("sponsor reward should be pending for user 1, got user %d status %s", sponsorReward.UserID, sponsorReward.Status)
	}

	reloaded, _ := svc.GetOrCreateProfile(ctx, 1)
	if reloaded.TotalReferrals != 1 {
		t.Errorf("expected TotalReferrals 1, got %d", reloaded.TotalReferrals)
	}
	referred, _ := svc.GetOrCreateProfile(ctx, 2)
	if referred.ReferredBy != sponsor.ReferralCode {
		t.Errorf("expected ReferredBy %q, got %q", sponsor.ReferralCode, referred.ReferredBy)
	}
}

func TestRedeemReferralCode_OnlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sponsor, _ := svc.GetProfile(ctx, 1)
	other, _ := svc.GetProfile(ctx, 3)

	if _, _, err := svc.RedeemReferralCode(ctx, 2, sponsor.ReferralCode); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, _, err := svc.RedeemReferralCode(ctx, 2, other.ReferralCode); !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
}

func TestRedeemReferralCode_InvalidCodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	own, _ := svc.GetProfile(ctx, 1)

	if _, _, err := svc.RedeemReferralCode(ctx, 2, "NOSUCHCODE1"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for unknown code, got %v", err)
	}
	if _, _, err := svc.RedeemReferralCode(ctx, 1, own.ReferralCode); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for own code, got %v", err)
	}
}

func TestActivateReferralReward(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	sponsor, _ := svc.GetProfile(ctx, 1)
	referral, _, err := svc.RedeemReferralCode(ctx, 2, sponsor.ReferralCode)
	if err != nil {
		t.Fatalf("RedeemReferralCode: %v", err)
	}

	var activated *domain.Discount
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		activated, txErr = svc.ActivateReferralRewardInTx(tx, 2)
		return txErr
	})
	if err != nil {
		t.Fatalf("ActivateReferralRewardInTx: %v", err)
	}
	if activated == nil || activated.Status != domain.DiscountAvailable {
		t.Fatalf("sponsor reward should be available, got %+v", activated)
	}
	if activated.ID != *referral.SponsorDiscountID {
		t.Error("activated the wrong discount")
	}

	var ref domain.Referral
	if err := db.First(&ref, "id = ?", referral.ID).Error; err != nil {
		t.Fatalf("load referral: %v", err)
	}
	if ref.Status != domain.ReferralRewarded {
		t.Errorf("expected rewarded referral, got %s", ref.Status)
	}

	// replayed payment callbacks find no open referral and do nothing
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		activated, txErr = svc.ActivateReferralRewardInTx(tx, 2)
		return txErr
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if activated != nil {
		t.Fatal("replay must be a no-op")
	}
}

func TestActivateReferralReward_NoReferral(t *testing.T) {
	svc, db := newTestService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		activated, err := svc.ActivateReferralRewardInTx(tx, 99)
		if activated != nil {
			t.Error("expected nil for a user without a referral")
		}
		return err
	})
	if err != nil {
		t.Fatalf("ActivateReferralRewardInTx: %v", err)
	}
}

func TestRecordCompletedService_TierAndMilestone(t *testing.T) {
	svc, db := newTestService(t)

	var milestone *domain.Discount
	for i := 0; i < 5; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, m, err := svc.RecordCompletedServiceInTx(tx, 1, 1, 0, 55)
			if m != nil {
				milestone = m
			}
			return err
		})
		if err != nil {
			t.Fatalf("RecordCompletedServiceInTx: %v", err)
		}
		if i < 4 && milestone != nil {
			t.Fatalf("milestone granted too early, after %d services", i+1)
		}
	}

	if milestone == nil {
		t.Fatal("expected a milestone reward after the fifth individual service")
	}
	if milestone.Type != domain.DiscountLoyaltyMilestone || milestone.Amount != milestoneReward {
		t.Errorf("unexpected milestone: %s/%v", milestone.Type, milestone.Amount)
	}

	profile, err := svc.GetOrCreateProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetOrCreateProfile: %v", err)
	}
	if profile.IndividualServicesCount != 5 {
		t.Errorf("expected 5 individual services, got %d", profile.IndividualServicesCount)
	}
	if profile.TotalSpent != 275 {
		t.Errorf("expected 275 spent, got %v", profile.TotalSpent)
	}
	if profile.Points != 275 {
		t.Errorf("expected 275 points, got %d", profile.Points)
	}
	// 275 crosses the silver threshold
	if profile.Tier != domain.TierSilver {
		t.Errorf("expected silver, got %s", profile.Tier)
	}
}

func TestRecordCompletedService_PackagesDontCountTowardMilestone(t *testing.T) {
	svc, db := newTestService(t)

	for i := 0; i < 6; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, m, err := svc.RecordCompletedServiceInTx(tx, 1, 0, 1, 240)
			if m != nil {
				t.Fatal("packages must not trigger the individual-service milestone")
			}
			return err
		})
		if err != nil {
			t.Fatalf("RecordCompletedServiceInTx: %v", err)
		}
	}

	profile, _ := svc.GetOrCreateProfile(context.Background(), 1)
	if profile.PackagesCount != 6 {
		t.Errorf("expected 6 packages, got %d", profile.PackagesCount)
	}
	// 1440 spent crosses platinum
	if profile.Tier != domain.TierPlatinum {
		t.Errorf("expected platinum, got %s", profile.Tier)
	}
}
