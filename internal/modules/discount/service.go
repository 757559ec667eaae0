package discount

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"institut/internal/domain"
)

type Service struct {
	db     *gorm.DB
	notifs NotificationSender
}

func NewService(db *gorm.DB, notifs NotificationSender) *Service {
	return &Service{db: db, notifs: notifs}
}

// Grant creates a reward grant in pending or available state.
func (s *Service) Grant(ctx context.Context, userID int64, typ domain.DiscountType, amount float64, status domain.DiscountStatus, expiresAt *time.Time) (*domain.Discount, error) {
	d, err := GrantInTx(s.db.WithContext(ctx), userID, typ, amount, status, expiresAt)
	if err != nil {
		return nil, err
	}

	if s.notifs != nil {
		s.notifs.Emit(ctx, domain.NotifyDiscountGranted, userID, &domain.NotificationPayload{
			DiscountID: d.ID.String(),
			Amount:     &d.Amount,
		})
	}
	return d, nil
}

// GrantInTx is the composable form used when a grant is part of a larger
// atomic unit (referral redemption). The caller emits events after commit.
func GrantInTx(tx *gorm.DB, userID int64, typ domain.DiscountType, amount float64, status domain.DiscountStatus, expiresAt *time.Time) (*domain.Discount, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if status != domain.DiscountPending && status != domain.DiscountAvailable {
		return nil, ErrInvalidStatus
	}

	d := domain.Discount{
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Status:    status,
		ExpiresAt: expiresAt,
	}
	if err := tx.Create(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Activate flips a pending grant to available. Idempotent activation is not
// allowed: only the pending state accepts the transition.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*domain.Discount, error) {
	var d *domain.Discount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		d, txErr = ActivateInTx(tx, id)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if s.notifs != nil {
		s.notifs.Emit(ctx, domain.NotifyDiscountActivated, d.UserID, &domain.NotificationPayload{
			DiscountID: d.ID.String(),
			Amount:     &d.Amount,
		})
	}
	return d, nil
}

// ActivateInTx performs the pending -> available transition under a row lock.
func ActivateInTx(tx *gorm.DB, id uuid.UUID) (*domain.Discount, error) {
	var d domain.Discount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if d.Status != domain.DiscountPending {
		return nil, ErrInvalidTransition
	}

	d.Status = domain.DiscountAvailable
	err = tx.Model(&domain.Discount{}).
		Where("id = ?", d.ID).
		Update("status", d.Status).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ConsumeInTx transitions available -> used under a row lock, inside the
// caller's pricing transaction. A replay against an already-used discount
// fails with ErrAlreadyUsed and mutates nothing; expiry is enforced here at
// read time, never by a background sweep.
func (s *Service) ConsumeInTx(tx *gorm.DB, id uuid.UUID, userID int64) (*domain.Discount, error) {
	var d domain.Discount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidDiscount
	}
	if err != nil {
		return nil, err
	}

	if d.UserID != userID {
		return nil, ErrInvalidDiscount
	}
	if d.Status == domain.DiscountUsed {
		return nil, ErrAlreadyUsed
	}
	if !d.IsUsable(time.Now()) {
		return nil, ErrInvalidDiscount
	}

	d.Status = domain.DiscountUsed
	err = tx.Model(&domain.Discount{}).
		Where("id = ?", d.ID).
		Update("status", d.Status).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AttachReservationInTx links a consumed discount to the reservation that
// consumed it, once the reservation row exists.
func (s *Service) AttachReservationInTx(tx *gorm.DB, id uuid.UUID, reservationID int64) error {
	return tx.Model(&domain.Discount{}).
		Where("id = ?", id).
		Update("reservation_id", reservationID).Error
}

// Postpone defers an expiring available discount: the original is marked
// postponed and a linked successor is created with the new expiry. The
// chain is append-only and doubles as an audit trail.
func (s *Service) Postpone(ctx context.Context, id uuid.UUID, newExpiry time.Time) (*domain.Discount, error) {
	var successor domain.Discount

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original domain.Discount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&original).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if original.Status != domain.DiscountAvailable {
			return ErrInvalidTransition
		}

		successor = domain.Discount{
			UserID:        original.UserID,
			Type:          domain.DiscountTypePostponed,
			Amount:        original.Amount,
			Status:        domain.DiscountAvailable,
			ExpiresAt:     &newExpiry,
			PostponedFrom: &original.ID,
		}
		if err := tx.Create(&successor).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Discount{}).
			Where("id = ?", original.ID).
			Updates(map[string]interface{}{
				"status":       domain.DiscountPostponed,
				"postponed_to": successor.ID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &successor, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Discount, error) {
	var d domain.Discount
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListForUser returns the user's grants with the read-time effective status.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.Discount, error) {
	var out []domain.Discount
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EffectiveStatus applies the lazy expiry rule without rewriting the row:
// a stored available/pending status past ExpiresAt reads as expired.
func EffectiveStatus(d *domain.Discount, now time.Time) domain.DiscountStatus {
	if (d.Status == domain.DiscountAvailable || d.Status == domain.DiscountPending) && d.IsExpired(now) {
		return domain.DiscountExpired
	}
	return d.Status
}
