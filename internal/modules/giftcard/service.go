package giftcard

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"institut/internal/database"
	"institut/internal/domain"
)

const (
	issueAttempts      = 5
	defaultValidMonths = 12
)

type Service struct {
	db     *gorm.DB
	notifs NotificationSender
}

func NewService(db *gorm.DB, notifs NotificationSender) *Service {
	return &Service{db: db, notifs: notifs}
}

type IssueRequest struct {
	Amount         float64
	PurchaserID    *int64
	PurchasedFor   string
	RecipientEmail string
	ExpiryDate     *time.Time
}

// Issue creates a gift card with a fresh unique code, retrying generation
// on a code collision until the unique constraint accepts the insert.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*domain.GiftCard, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	expiry := time.Now().AddDate(0, defaultValidMonths, 0)
	if req.ExpiryDate != nil {
		expiry = *req.ExpiryDate
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		card := domain.GiftCard{
			Code:           newCode(),
			InitialAmount:  req.Amount,
			Balance:        req.Amount,
			Status:         domain.GiftCardActive,
			ExpiryDate:     expiry,
			PurchaserID:    req.PurchaserID,
			PurchasedFor:   req.PurchasedFor,
			RecipientEmail: req.RecipientEmail,
		}
		err := s.db.WithContext(ctx).Create(&card).Error
		if err == nil {
			if s.notifs != nil {
				var userID int64
				if req.PurchaserID != nil {
					userID = *req.PurchaserID
				}
				s.notifs.Emit(ctx, domain.NotifyGiftCardIssued, userID, &domain.NotificationPayload{
					GiftCardCode: card.Code,
					Amount:       &card.InitialAmount,
				})
			}
			return &card, nil
		}
		if database.IsUniqueViolation(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrCodeExhausted
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.GiftCard, error) {
	var card domain.GiftCard
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *Service) ListByPurchaser(ctx context.Context, userID int64) ([]domain.GiftCard, error) {
	var out []domain.GiftCard
	err := s.db.WithContext(ctx).
		Where("purchaser_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RedeemInTx debits the card inside the caller's transaction, holding a row
// lock so concurrent redemptions of the same code serialize. Returns the
// amount actually applied (min of balance and requested) and whether the
// card is past its expiry date. An expired but still active card is a
// warning for manual override, not a hard failure.
func (s *Service) RedeemInTx(tx *gorm.DB, code string, requested float64) (*domain.GiftCard, float64, bool, error) {
	if requested <= 0 {
		return nil, 0, false, ErrInvalidAmount
	}

	var card domain.GiftCard
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, false, ErrInvalidCard
	}
	if err != nil {
		return nil, 0, false, err
	}

	if card.Status != domain.GiftCardActive || card.Balance <= 0 {
		return nil, 0, false, ErrInvalidCard
	}
	expiredWarning := card.IsExpired(time.Now())

	applied := requested
	if card.Balance < applied {
		applied = card.Balance
	}

	card.Balance -= applied
	if card.Balance == 0 {
		card.Status = domain.GiftCardUsed
	}

	err = tx.Model(&domain.GiftCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]interface{}{
			"balance": card.Balance,
			"status":  card.Status,
		}).Error
	if err != nil {
		return nil, 0, false, err
	}

	return &card, applied, expiredWarning, nil
}

// AdminAdjust is the explicit correction path: the only way a balance is
// ever re-credited. Clamped to [0, InitialAmount].
func (s *Service) AdminAdjust(ctx context.Context, code string, newBalance float64) (*domain.GiftCard, error) {
	var card domain.GiftCard

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if card.Status == domain.GiftCardCancelled {
			return ErrInvalidCard
		}
		if newBalance < 0 || newBalance > card.InitialAmount {
			return ErrInvalidAmount
		}

		card.Balance = newBalance
		if newBalance == 0 {
			card.Status = domain.GiftCardUsed
		} else {
			card.Status = domain.GiftCardActive
		}

		return tx.Model(&domain.GiftCard{}).
			Where("id = ?", card.ID).
			Updates(map[string]interface{}{
				"balance": card.Balance,
				"status":  card.Status,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Cancel voids a card entirely; the remaining balance is forfeited.
func (s *Service) Cancel(ctx context.Context, code string) (*domain.GiftCard, error) {
	var card domain.GiftCard

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		card.Status = domain.GiftCardCancelled
		return tx.Model(&domain.GiftCard{}).
			Where("id = ?", card.ID).
			Update("status", card.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}
