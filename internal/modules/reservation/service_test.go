package reservation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"institut/internal/database"
	"institut/internal/domain"
	"institut/internal/modules/discount"
	"institut/internal/modules/giftcard"
	"institut/internal/modules/loyalty"
	"institut/internal/modules/schedule"
	"institut/internal/repository"
)

// 2026-09-01 is a Tuesday.
const testDate = "2026-09-01"

type testEnv struct {
	db        *gorm.DB
	svc       *Service
	discounts *discount.Service
	cards     *giftcard.Service
	loyalty   *loyalty.Service
	facial    domain.Service // 60
	manicure  domain.Service // 40
	cure      domain.Service // 240, package
}

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id, Name: fmt.Sprintf("Client%d", id)}, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	for weekday := 0; weekday <= 6; weekday++ {
		require.NoError(t, db.Create(&domain.WorkingHours{
			Weekday: weekday, IsOpen: true, StartTime: "09:00", EndTime: "18:00",
		}).Error)
	}

	env := &testEnv{
		db:       db,
		facial:   domain.Service{Name: "Soin visage", Price: 60, Kind: domain.ServiceIndividual, IsActive: true},
		manicure: domain.Service{Name: "Manucure", Price: 40, Kind: domain.ServiceIndividual, IsActive: true},
		cure:     domain.Service{Name: "Cure massages", Price: 240, Kind: domain.ServicePackage, IsActive: true},
	}
	require.NoError(t, db.Create(&env.facial).Error)
	require.NoError(t, db.Create(&env.manicure).Error)
	require.NoError(t, db.Create(&env.cure).Error)

	scheduleSvc := schedule.NewService(db)
	env.discounts = discount.NewService(db, nil)
	env.cards = giftcard.NewService(db, nil)
	env.loyalty = loyalty.NewService(db, stubUsers{}, nil)
	env.svc = NewService(db, repository.NewReservationRepository(db),
		scheduleSvc, env.discounts, env.cards, env.loyalty, nil)
	return env
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, warnings, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:       testDate,
		Time:       "10:00",
		ServiceIDs: []int64{env.facial.ID, env.manicure.ID},
	})
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, domain.ReservationPending, res.Status)
	require.Equal(t, domain.PaymentUnpaid, res.PaymentStatus)
	require.Equal(t, 100.0, res.TotalPrice)
}

func TestCreate_SlotTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	_, _, err = env.svc.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.manicure.ID},
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

// blindSlots approves every slot, standing in for a checker whose read
// happened before a concurrent writer committed.
type blindSlots struct{}

func (blindSlots) CheckSlotTx(*gorm.DB, string, string, int64) error { return nil }

func TestCreate_LosesInsertRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	racing := NewService(env.db, repository.NewReservationRepository(env.db),
		blindSlots{}, env.discounts, env.cards, env.loyalty, nil)

	_, _, err := racing.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	// the availability check saw nothing, so the insert itself must trip
	// the unique index and surface as a slot conflict
	_, _, err = racing.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.manicure.ID},
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// the losing insert left no row behind
	var count int64
	require.NoError(t, env.db.Model(&domain.Reservation{}).
		Where("date = ? AND time = ?", testDate, "10:00").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestModify_LosesInsertRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	racing := NewService(env.db, repository.NewReservationRepository(env.db),
		blindSlots{}, env.discounts, env.cards, env.loyalty, nil)

	_, _, err := racing.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)
	res, _, err := racing.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "11:00", ServiceIDs: []int64{env.manicure.ID},
	})
	require.NoError(t, err)

	taken := "10:00"
	_, err = racing.Modify(ctx, res.ID, 2, ModifyReservationRequest{Time: &taken})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// the losing move rolled back, the reservation keeps its slot
	reloaded, err := racing.GetByID(ctx, res.ID, 2, false)
	require.NoError(t, err)
	require.Equal(t, "11:00", reloaded.Time)
}

func TestCreate_UnknownService(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Create(context.Background(), 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{9999},
	})
	require.ErrorIs(t, err, ErrUnknownService)
}

func TestCreate_DiscountAndGiftCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d, err := env.discounts.Grant(ctx, 1, domain.DiscountManual, 40, domain.DiscountAvailable, nil)
	require.NoError(t, err)
	card, err := env.cards.Issue(ctx, giftcard.IssueRequest{Amount: 100})
	require.NoError(t, err)

	// base 100, discount 40 -> total 60, card covers it fully
	res, warnings, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:         testDate,
		Time:         "10:00",
		ServiceIDs:   []int64{env.facial.ID, env.manicure.ID},
		GiftCardCode: card.Code,
		DiscountID:   &d.ID,
	})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 60.0, res.TotalPrice)
	require.Equal(t, 60.0, res.GiftCardUsedAmount)
	require.Equal(t, domain.PaymentPaid, res.PaymentStatus)

	after, err := env.cards.GetByCode(ctx, card.Code)
	require.NoError(t, err)
	require.Equal(t, 40.0, after.Balance)

	used, err := env.discounts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DiscountUsed, used.Status)
	require.NotNil(t, used.ReservationID)
	require.Equal(t, res.ID, *used.ReservationID)

	// the remaining 40 exhaust the card on a second booking
	res2, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:         testDate,
		Time:         "11:00",
		ServiceIDs:   []int64{env.manicure.ID},
		GiftCardCode: card.Code,
	})
	require.NoError(t, err)
	require.Equal(t, 40.0, res2.GiftCardUsedAmount)
	require.Equal(t, domain.PaymentPaid, res2.PaymentStatus)

	after, err = env.cards.GetByCode(ctx, card.Code)
	require.NoError(t, err)
	require.Equal(t, 0.0, after.Balance)
	require.Equal(t, domain.GiftCardUsed, after.Status)
}

func TestCreate_PartialPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	card, err := env.cards.Issue(ctx, giftcard.IssueRequest{Amount: 40})
	require.NoError(t, err)

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:         testDate,
		Time:         "10:00",
		ServiceIDs:   []int64{env.facial.ID, env.manicure.ID},
		GiftCardCode: card.Code,
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, res.TotalPrice)
	require.Equal(t, 40.0, res.GiftCardUsedAmount)
	require.Equal(t, domain.PaymentPartial, res.PaymentStatus)
}

func TestCreate_UsedDiscountRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d, err := env.discounts.Grant(ctx, 1, domain.DiscountManual, 20, domain.DiscountAvailable, nil)
	require.NoError(t, err)

	_, _, err = env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID}, DiscountID: &d.ID,
	})
	require.NoError(t, err)

	_, _, err = env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "11:00", ServiceIDs: []int64{env.facial.ID}, DiscountID: &d.ID,
	})
	require.ErrorIs(t, err, ErrDiscountAlreadyUsed)

	// the failed booking left no reservation behind
	ok, err := schedule.NewService(env.db).IsSlotAvailable(ctx, testDate, "11:00")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreate_RollsBackDiscountOnGiftCardFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d, err := env.discounts.Grant(ctx, 1, domain.DiscountManual, 20, domain.DiscountAvailable, nil)
	require.NoError(t, err)
	card, err := env.cards.Issue(ctx, giftcard.IssueRequest{Amount: 50})
	require.NoError(t, err)
	_, err = env.cards.Cancel(ctx, card.Code)
	require.NoError(t, err)

	_, _, err = env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:         testDate,
		Time:         "10:00",
		ServiceIDs:   []int64{env.facial.ID},
		GiftCardCode: card.Code,
		DiscountID:   &d.ID,
	})
	require.ErrorIs(t, err, ErrGiftCardInvalid)

	// the consume in the same transaction was rolled back
	reloaded, err := env.discounts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DiscountAvailable, reloaded.Status)
}

func TestModify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	newTime := "14:00"
	moved, err := env.svc.Modify(ctx, res.ID, 1, ModifyReservationRequest{Time: &newTime})
	require.NoError(t, err)
	require.Equal(t, "14:00", moved.Time)

	// the old slot is free again
	ok, err := schedule.NewService(env.db).IsSlotAvailable(ctx, testDate, "10:00")
	require.NoError(t, err)
	require.True(t, ok)

	// moving onto an occupied slot fails
	_, _, err = env.svc.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "15:00", ServiceIDs: []int64{env.manicure.ID},
	})
	require.NoError(t, err)
	taken := "15:00"
	_, err = env.svc.Modify(ctx, res.ID, 1, ModifyReservationRequest{Time: &taken})
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestModify_RepricesWhileUnpaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)
	require.Equal(t, 60.0, res.TotalPrice)

	updated, err := env.svc.Modify(ctx, res.ID, 1, ModifyReservationRequest{
		ServiceIDs: []int64{env.facial.ID, env.manicure.ID},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, updated.TotalPrice)

	// once something is paid the service list is frozen
	_, err = env.svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)
	_, err = env.svc.Modify(ctx, res.ID, 1, ModifyReservationRequest{
		ServiceIDs: []int64{env.manicure.ID},
	})
	require.ErrorIs(t, err, ErrNotModifiable)
}

func TestModify_OtherUsersReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	other := "11:00"
	_, err = env.svc.Modify(ctx, res.ID, 2, ModifyReservationRequest{Time: &other})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_FreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, res.ID, 1, false)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	// slot is bookable again
	_, _, err = env.svc.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.manicure.ID},
	})
	require.NoError(t, err)

	// cancelling twice is rejected
	_, err = env.svc.Cancel(ctx, res.ID, 1, false)
	require.ErrorIs(t, err, ErrNotModifiable)
}

func TestCancel_ForfeitsInstruments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	d, err := env.discounts.Grant(ctx, 1, domain.DiscountManual, 20, domain.DiscountAvailable, nil)
	require.NoError(t, err)
	card, err := env.cards.Issue(ctx, giftcard.IssueRequest{Amount: 30})
	require.NoError(t, err)

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date:         testDate,
		Time:         "10:00",
		ServiceIDs:   []int64{env.facial.ID},
		GiftCardCode: card.Code,
		DiscountID:   &d.ID,
	})
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, res.ID, 1, false)
	require.NoError(t, err)

	// no refunds: the discount stays used, the card balance stays debited
	usedDiscount, err := env.discounts.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DiscountUsed, usedDiscount.Status)

	after, err := env.cards.GetByCode(ctx, card.Code)
	require.NoError(t, err)
	require.Equal(t, 0.0, after.Balance)
}

func TestSetPaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	paid, err := env.svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
	require.Equal(t, domain.ReservationConfirmed, paid.Status)

	// callback replays are no-ops
	again, err := env.svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)
	require.Equal(t, domain.ReservationConfirmed, again.Status)

	_, err = env.svc.SetPaymentStatus(ctx, res.ID, "settled")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetPaymentStatus_ActivatesSponsorReward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sponsor, err := env.loyalty.GetProfile(ctx, 1)
	require.NoError(t, err)
	referral, _, err := env.loyalty.RedeemReferralCode(ctx, 2, sponsor.ReferralCode)
	require.NoError(t, err)

	res, _, err := env.svc.Create(ctx, 2, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)

	_, err = env.svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)

	var sponsorReward domain.Discount
	require.NoError(t, env.db.First(&sponsorReward, "id = ?", *referral.SponsorDiscountID).Error)
	require.Equal(t, domain.DiscountAvailable, sponsorReward.Status)

	var ref domain.Referral
	require.NoError(t, env.db.First(&ref, "id = ?", referral.ID).Error)
	require.Equal(t, domain.ReferralRewarded, ref.Status)
}

func TestComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, _, err := env.svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID, env.cure.ID},
	})
	require.NoError(t, err)

	// completing before confirmation is rejected
	_, err = env.svc.Complete(ctx, res.ID)
	require.ErrorIs(t, err, ErrNotModifiable)

	_, err = env.svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)

	done, err := env.svc.Complete(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCompleted, done.Status)

	profile, err := env.loyalty.GetOrCreateProfile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, profile.IndividualServicesCount)
	require.Equal(t, 1, profile.PackagesCount)
	require.Equal(t, 300.0, profile.TotalSpent)
	require.Equal(t, domain.TierSilver, profile.Tier)
}

type recordingNotifier struct {
	types []string
}

func (r *recordingNotifier) Emit(_ context.Context, eventType string, _ int64, _ *domain.NotificationPayload) {
	r.types = append(r.types, eventType)
}

func TestComplete_EmitsMilestoneGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	notifs := &recordingNotifier{}
	svc := NewService(env.db, repository.NewReservationRepository(env.db),
		schedule.NewService(env.db), env.discounts, env.cards, env.loyalty, notifs)

	// four individual services on record, the next completion crosses
	// the milestone
	require.NoError(t, env.db.Create(&domain.LoyaltyProfile{
		UserID: 1, Tier: domain.TierBronze, IndividualServicesCount: 4,
	}).Error)

	res, _, err := svc.Create(ctx, 1, CreateReservationRequest{
		Date: testDate, Time: "10:00", ServiceIDs: []int64{env.facial.ID},
	})
	require.NoError(t, err)
	_, err = svc.SetPaymentStatus(ctx, res.ID, string(domain.PaymentPaid))
	require.NoError(t, err)
	_, err = svc.Complete(ctx, res.ID)
	require.NoError(t, err)

	require.Contains(t, notifs.types, domain.NotifyDiscountGranted)

	var milestones []domain.Discount
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ?", 1, domain.DiscountLoyaltyMilestone).
		Find(&milestones).Error)
	require.Len(t, milestones, 1)
}
