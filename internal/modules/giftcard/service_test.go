package giftcard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"gorm.io/gorm"

	"institut/internal/database"
	"institut/internal/domain"
)

var codePattern = regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`)

type capturedEvent struct {
	eventType string
	userID    int64
	payload   *domain.NotificationPayload
}

type fakeNotifier struct {
	events []capturedEvent
}

func (f *fakeNotifier) Emit(_ context.Context, eventType string, userID int64, payload *domain.NotificationPayload) {
	f.events = append(f.events, capturedEvent{eventType, userID, payload})
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

func TestIssue(t *testing.T) {
	db := newTestDB(t)
	notifs := &fakeNotifier{}
	svc := NewService(db, notifs)

	purchaser := int64(7)
	card, err := svc.Issue(context.Background(), IssueRequest{Amount: 100, PurchaserID: &purchaser, PurchasedFor: "Camille"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if !codePattern.MatchString(card.Code) {
		t.Errorf("unexpected code format: %q", card.Code)
	}
	if card.Balance != 100 || card.InitialAmount != 100 {
		t.Errorf("expected balance=initial=100, got %v/%v", card.Balance, card.InitialAmount)
	}
	if card.Status != domain.GiftCardActive {
		t.Errorf("expected active status, got %s", card.Status)
	}

	// default validity is twelve months
	wantExpiry := time.Now().AddDate(0, 12, 0)
	if diff := card.ExpiryDate.Sub(wantExpiry); diff < -time.Hour || diff > time.Hour {
		t.Errorf("unexpected default expiry: %v", card.ExpiryDate)
	}

	if len(notifs.events) != 1 || notifs.events[0].eventType != domain.NotifyGiftCardIssued {
		t.Fatalf("expected one giftcard.issued event, got %+v", notifs.events)
	}
	if notifs.events[0].payload.GiftCardCode != card.Code {
		t.Errorf("event payload carries wrong code: %q", notifs.events[0].payload.GiftCardCode)
	}
}

func TestIssue_RejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	if _, err := svc.Issue(context.Background(), IssueRequest{Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRedeemInTx_PartialThenFull(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	card, err := svc.Issue(context.Background(), IssueRequest{Amount: 100})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, applied, warning, err := svc.RedeemInTx(tx, card.Code, 60)
		if err != nil {
			return err
		}
		if applied != 60 {
			t.Errorf("expected 60 applied, got %v", applied)
		}
		if warning {
			t.Error("unexpected expiry warning")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("first redeem: %v", err)
	}

	after, err := svc.GetByCode(context.Background(), card.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if after.Balance != 40 || after.Status != domain.GiftCardActive {
		t.Fatalf("expected balance 40 active, got %v %s", after.Balance, after.Status)
	}

	// asking for more than the balance applies the remainder and exhausts the card
	err = db.Transaction(func(tx *gorm.DB) error {
		_, applied, _, err := svc.RedeemInTx(tx, card.Code, 75)
		if err != nil {
			return err
		}
		if applied != 40 {
			t.Errorf("expected 40 applied, got %v", applied)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}

	after, _ = svc.GetByCode(context.Background(), card.Code)
	if after.Balance != 0 || after.Status != domain.GiftCardUsed {
		t.Fatalf("expected exhausted card, got balance %v status %s", after.Balance, after.Status)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, _, err := svc.RedeemInTx(tx, card.Code, 10)
		return err
	})
	if !errors.Is(err, ErrInvalidCard) {
		t.Fatalf("expected ErrInvalidCard on exhausted card, got %v", err)
	}
}

func TestRedeemInTx_ExpiredCardWarns(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	past := time.Now().AddDate(0, -1, 0)
	card, err := svc.Issue(context.Background(), IssueRequest{Amount: 50, ExpiryDate: &past})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, applied, warning, err := svc.RedeemInTx(tx, card.Code, 20)
		if err != nil {
			return err
		}
		if applied != 20 {
			t.Errorf("expected 20 applied, got %v", applied)
		}
		if !warning {
			t.Error("expected expiry warning on an expired but active card")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
}

func TestRedeemInTx_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, _, err := svc.RedeemInTx(tx, "NOPE-NOPE-NOPE", 10)
		return err
	})
	if !errors.Is(err, ErrInvalidCard) {
		t.Fatalf("expected ErrInvalidCard, got %v", err)
	}
}

func TestAdminAdjust(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	card, err := svc.Issue(ctx, IssueRequest{Amount: 100})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// re-credit above the initial amount is rejected
	if _, err := svc.AdminAdjust(ctx, card.Code, 150); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	adjusted, err := svc.AdminAdjust(ctx, card.Code, 0)
	if err != nil {
		t.Fatalf("AdminAdjust: %v", err)
	}
	if adjusted.Status != domain.GiftCardUsed {
		t.Fatalf("expected used at zero balance, got %s", adjusted.Status)
	}

	// the explicit correction path is the only re-credit
	adjusted, err = svc.AdminAdjust(ctx, card.Code, 25)
	if err != nil {
		t.Fatalf("AdminAdjust re-credit: %v", err)
	}
	if adjusted.Balance != 25 || adjusted.Status != domain.GiftCardActive {
		t.Fatalf("expected active balance 25, got %v %s", adjusted.Balance, adjusted.Status)
	}
}

func TestCancelForfeitsBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	card, err := svc.Issue(ctx, IssueRequest{Amount: 80})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Cancel(ctx, card.Code); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, _, err := svc.RedeemInTx(tx, card.Code, 10)
		return err
	})
	if !errors.Is(err, ErrInvalidCard) {
		t.Fatalf("expected ErrInvalidCard on cancelled card, got %v", err)
	}
}
