package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"institut/internal/database"
	"institut/internal/domain"
	"institut/internal/modules/discount"
	"institut/internal/modules/giftcard"
	"institut/internal/modules/schedule"
	"institut/internal/repository"
)

const expiredCardWarning = "gift card is past its expiry date; remaining balance honoured"

type Service struct {
	db        *gorm.DB
	repo      *repository.ReservationRepository
	slots     SlotChecker
	discounts DiscountConsumer
	cards     GiftCardRedeemer
	loyalty   LoyaltyRecorder
	notifs    NotificationSender
}

func NewService(
	db *gorm.DB,
	repo *repository.ReservationRepository,
	slots SlotChecker,
	discounts DiscountConsumer,
	cards GiftCardRedeemer,
	loyalty LoyaltyRecorder,
	notifs NotificationSender,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		slots:     slots,
		discounts: discounts,
		cards:     cards,
		loyalty:   loyalty,
		notifs:    notifs,
	}
}

// Create books a slot and settles the price in one transaction: locked
// slot re-validation, base price from the catalog, optional discount
// consume, optional gift-card debit, insert. Everything rolls back
// together, so a failed insert never leaves a burned discount or a
// debited card behind.
func (s *Service) Create(ctx context.Context, userID int64, req CreateReservationRequest) (*domain.Reservation, []string, error) {
	var (
		res      domain.Reservation
		warnings []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkSlot(tx, req.Date, req.Time, 0); err != nil {
			return err
		}

		services, err := servicesByIDs(tx, req.ServiceIDs)
		if err != nil {
			return err
		}

		total := 0.0
		for i := range services {
			total += services[i].Price
		}

		res = domain.Reservation{
			UserID:        userID,
			Date:          req.Date,
			Time:          req.Time,
			TotalPrice:    total,
			Status:        domain.ReservationPending,
			PaymentStatus: domain.PaymentUnpaid,
			Notes:         req.Notes,
		}
		res.Services, _ = json.Marshal(req.ServiceIDs)

		if req.DiscountID != nil {
			d, err := s.discounts.ConsumeInTx(tx, *req.DiscountID, userID)
			if err != nil {
				return mapDiscountErr(err)
			}
			res.DiscountID = &d.ID
			res.TotalPrice -= d.Amount
			if res.TotalPrice < 0 {
				res.TotalPrice = 0
			}
		}

		if req.GiftCardCode != "" && res.TotalPrice > 0 {
			card, applied, expired, err := s.cards.RedeemInTx(tx, req.GiftCardCode, res.TotalPrice)
			if err != nil {
				return mapGiftCardErr(err)
			}
			res.GiftCardID = &card.ID
			res.GiftCardUsedAmount = applied
			if expired {
				warnings = append(warnings, expiredCardWarning)
			}
		}

		switch {
		case res.GiftCardUsedAmount >= res.TotalPrice:
			res.PaymentStatus = domain.PaymentPaid
		case res.GiftCardUsedAmount > 0:
			res.PaymentStatus = domain.PaymentPartial
		}

		if err := tx.Create(&res).Error; err != nil {
			// a concurrent writer won the slot between the check and
			// the insert; the partial unique index reports it
			if database.IsUniqueViolation(err) {
				return ErrSlotUnavailable
			}
			return err
		}

		if res.DiscountID != nil {
			if err := s.discounts.AttachReservationInTx(tx, *res.DiscountID, res.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.emit(ctx, domain.NotifyReservationCreated, &res)
	return &res, warnings, nil
}

// Modify changes the slot and/or the service list of an active
// reservation. A slot change re-runs the locked availability check with
// the reservation's own row excluded; a service change reprices and is
// only allowed while nothing has been paid.
func (s *Service) Modify(ctx context.Context, id, userID int64, req ModifyReservationRequest) (*domain.Reservation, error) {
	var res domain.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockReservation(tx, id, &res); err != nil {
			return err
		}
		if res.UserID != userID {
			return ErrNotFound
		}
		if !res.IsActive() {
			return ErrNotModifiable
		}

		date, timeStr := res.Date, res.Time
		if req.Date != nil {
			date = *req.Date
		}
		if req.Time != nil {
			timeStr = *req.Time
		}
		if date != res.Date || timeStr != res.Time {
			if err := s.checkSlot(tx, date, timeStr, res.ID); err != nil {
				return err
			}
			res.Date, res.Time = date, timeStr
		}

		if req.ServiceIDs != nil {
			if res.PaymentStatus != domain.PaymentUnpaid {
				return ErrNotModifiable
			}
			services, err := servicesByIDs(tx, req.ServiceIDs)
			if err != nil {
				return err
			}
			total := 0.0
			for i := range services {
				total += services[i].Price
			}
			if res.DiscountID != nil {
				var d domain.Discount
				if err := tx.First(&d, "id = ?", *res.DiscountID).Error; err != nil {
					return err
				}
				total -= d.Amount
			}
			if total < 0 {
				total = 0
			}
			res.TotalPrice = total
			res.Services, _ = json.Marshal(req.ServiceIDs)
		}

		if req.Notes != nil {
			res.Notes = *req.Notes
		}

		if err := tx.Save(&res).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrSlotUnavailable
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Cancel frees the slot. Instruments consumed at booking time are
// forfeited; there is no refund path here.
func (s *Service) Cancel(ctx context.Context, id, userID int64, admin bool) (*domain.Reservation, error) {
	var res domain.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockReservation(tx, id, &res); err != nil {
			return err
		}
		if !admin && res.UserID != userID {
			return ErrNotFound
		}
		if !res.CanBeCancelled() {
			return ErrNotModifiable
		}

		now := time.Now()
		res.Status = domain.ReservationCancelled
		res.CancelledAt = &now
		return tx.Save(&res).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NotifyReservationCancelled, &res)
	return &res, nil
}

// SetPaymentStatus is the external payment-provider callback. It is
// idempotent: replays of the same status are no-ops. The first
// transition to paid confirms the reservation and, when the payer was
// referred and the referral is still open, releases the sponsor's
// pending reward.
func (s *Service) SetPaymentStatus(ctx context.Context, id int64, status string) (*domain.Reservation, error) {
	if !domain.ValidPaymentStatus(status) {
		return nil, ErrInvalidStatus
	}
	next := domain.PaymentStatus(status)

	var (
		res       domain.Reservation
		confirmed bool
		sponsor   *domain.Discount
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockReservation(tx, id, &res); err != nil {
			return err
		}
		if res.PaymentStatus == next {
			return nil
		}

		firstPaid := next == domain.PaymentPaid && res.PaymentStatus != domain.PaymentPaid
		res.PaymentStatus = next

		if firstPaid {
			if res.Status == domain.ReservationPending {
				res.Status = domain.ReservationConfirmed
				confirmed = true
			}
			d, err := s.loyalty.ActivateReferralRewardInTx(tx, res.UserID)
			if err != nil {
				return err
			}
			sponsor = d
		}

		return tx.Save(&res).Error
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		s.emit(ctx, domain.NotifyReservationConfirmed, &res)
	}
	if sponsor != nil && s.notifs != nil {
		s.notifs.Emit(ctx, domain.NotifyDiscountActivated, sponsor.UserID, &domain.NotificationPayload{
			DiscountID: sponsor.ID.String(),
			Amount:     &sponsor.Amount,
		})
	}
	return &res, nil
}

// Complete marks the appointment as done and feeds loyalty accrual with
// the per-kind service counts and the amount the client actually paid.
func (s *Service) Complete(ctx context.Context, id int64) (*domain.Reservation, error) {
	var (
		res       domain.Reservation
		milestone *domain.Discount
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockReservation(tx, id, &res); err != nil {
			return err
		}
		if res.Status != domain.ReservationConfirmed {
			return ErrNotModifiable
		}

		var ids []int64
		if err := json.Unmarshal(res.Services, &ids); err != nil {
			return err
		}
		var services []domain.Service
		if err := tx.Where("id IN ?", ids).Find(&services).Error; err != nil {
			return err
		}

		individual, packages := 0, 0
		for i := range services {
			if services[i].Kind == domain.ServicePackage {
				packages++
			} else {
				individual++
			}
		}

		var err error
		if _, milestone, err = s.loyalty.RecordCompletedServiceInTx(tx, res.UserID, individual, packages, res.TotalPrice); err != nil {
			return err
		}

		res.Status = domain.ReservationCompleted
		return tx.Save(&res).Error
	})
	if err != nil {
		return nil, err
	}

	if milestone != nil && s.notifs != nil {
		s.notifs.Emit(ctx, domain.NotifyDiscountGranted, milestone.UserID, &domain.NotificationPayload{
			DiscountID: milestone.ID.String(),
			Amount:     &milestone.Amount,
		})
	}
	return &res, nil
}

func (s *Service) GetByID(ctx context.Context, id, userID int64, admin bool) (*domain.Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !admin && res.UserID != userID {
		return nil, ErrNotFound
	}
	return res, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Reservation, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]domain.Reservation, error) {
	return s.repo.ListByDate(ctx, date)
}

func (s *Service) checkSlot(tx *gorm.DB, date, timeStr string, excludeID int64) error {
	err := s.slots.CheckSlotTx(tx, date, timeStr, excludeID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schedule.ErrSlotUnavailable):
		return ErrSlotUnavailable
	case errors.Is(err, schedule.ErrInvalidDate), errors.Is(err, schedule.ErrInvalidTime):
		return ErrValidation
	default:
		return err
	}
}

func (s *Service) emit(ctx context.Context, eventType string, res *domain.Reservation) {
	if s.notifs == nil {
		return
	}
	s.notifs.Emit(ctx, eventType, res.UserID, &domain.NotificationPayload{
		ReservationID: &res.ID,
		Date:          res.Date,
		Time:          res.Time,
	})
}

func lockReservation(tx *gorm.DB, id int64, res *domain.Reservation) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// servicesByIDs resolves the requested catalog entries inside the booking
// transaction and rejects the request if any of them is missing or inactive.
func servicesByIDs(tx *gorm.DB, ids []int64) ([]domain.Service, error) {
	if len(ids) == 0 {
		return nil, ErrUnknownService
	}
	var services []domain.Service
	if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&services).Error; err != nil {
		return nil, err
	}
	if len(services) != len(uniqueIDs(ids)) {
		return nil, ErrUnknownService
	}
	return services, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func mapDiscountErr(err error) error {
	switch {
	case errors.Is(err, discount.ErrAlreadyUsed):
		return ErrDiscountAlreadyUsed
	case errors.Is(err, discount.ErrInvalidDiscount), errors.Is(err, discount.ErrNotFound):
		return ErrDiscountInvalid
	default:
		return err
	}
}

func mapGiftCardErr(err error) error {
	switch {
	case errors.Is(err, giftcard.ErrInvalidCard), errors.Is(err, giftcard.ErrNotFound):
		return ErrGiftCardInvalid
	default:
		return err
	}
}
