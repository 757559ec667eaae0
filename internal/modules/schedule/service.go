package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"institut/internal/domain"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetAvailableSlots returns every 30-minute slot between the weekday's
// working bounds with its availability. A closed day and an all-day-blocked
// day both yield an empty slice; callers must treat them identically.
func (s *Service) GetAvailableSlots(ctx context.Context, date string) ([]domain.Slot, error) {
	day, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	db := s.db.WithContext(ctx)

	hours, err := s.hoursForWeekday(db, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if hours == nil || !hours.IsOpen {
		return []domain.Slot{}, nil
	}

	allDayBlocked, err := s.hasAllDayBlock(db, date)
	if err != nil {
		return nil, err
	}
	if allDayBlocked {
		return []domain.Slot{}, nil
	}

	startM, err := minutesOfDay(hours.StartTime)
	if err != nil {
		return nil, err
	}
	endM, err := minutesOfDay(hours.EndTime)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blockedTimes(db, date)
	if err != nil {
		return nil, err
	}
	reserved, err := s.reservedTimes(db, date)
	if err != nil {
		return nil, err
	}

	// Half-open range: a slot exactly at EndTime is never offered.
	slots := make([]domain.Slot, 0, (endM-startM)/domain.SlotDurationMinutes)
	for m := startM; m < endM; m += domain.SlotDurationMinutes {
		t := formatMinutes(m)
		slots = append(slots, domain.Slot{
			Time:      t,
			Available: !blocked[t] && !reserved[t],
		})
	}
	return slots, nil
}

// IsSlotAvailable evaluates the four independent checks for one slot:
// all-day block, single-slot block, closed/out-of-hours weekday, and an
// active conflicting reservation. The first failing check short-circuits.
func (s *Service) IsSlotAvailable(ctx context.Context, date, timeStr string) (bool, error) {
	err := s.checkSlot(s.db.WithContext(ctx), date, timeStr, 0)
	if errors.Is(err, ErrSlotUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CheckSlotTx runs the availability checks inside the caller's transaction
// so that check-then-insert is atomic with respect to concurrent bookings.
// excludeID drops the caller's own reservation row from the conflict check
// when a reservation is being moved.
func (s *Service) CheckSlotTx(tx *gorm.DB, date, timeStr string, excludeID int64) error {
	return s.checkSlot(tx, date, timeStr, excludeID)
}

func (s *Service) checkSlot(db *gorm.DB, date, timeStr string, excludeID int64) error {
	day, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		return ErrInvalidDate
	}
	slotM, err := minutesOfDay(timeStr)
	if err != nil {
		return ErrInvalidTime
	}

	allDayBlocked, err := s.hasAllDayBlock(db, date)
	if err != nil {
		return err
	}
	if allDayBlocked {
		return ErrSlotUnavailable
	}

	var blockCnt int64
	err = db.Model(&domain.BlockedSlot{}).
		Where("date = ? AND all_day = ? AND time = ?", date, false, timeStr).
		Count(&blockCnt).Error
	if err != nil {
		return err
	}
	if blockCnt > 0 {
		return ErrSlotUnavailable
	}

	hours, err := s.hoursForWeekday(db, int(day.Weekday()))
	if err != nil {
		return err
	}
	if hours == nil || !hours.IsOpen {
		return ErrSlotUnavailable
	}
	startM, err := minutesOfDay(hours.StartTime)
	if err != nil {
		return err
	}
	endM, err := minutesOfDay(hours.EndTime)
	if err != nil {
		return err
	}
	if slotM < startM || slotM >= endM {
		return ErrSlotUnavailable
	}

	q := db.Model(&domain.Reservation{}).
		Where("date = ? AND time = ? AND status IN ?", date, timeStr,
			[]domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed})
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var resCnt int64
	if err := q.Count(&resCnt).Error; err != nil {
		return err
	}
	if resCnt > 0 {
		return ErrSlotUnavailable
	}

	return nil
}

// ListWorkingHours returns the weekly schedule ordered by weekday.
func (s *Service) ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error) {
	var out []domain.WorkingHours
	err := s.db.WithContext(ctx).Order("weekday ASC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpsertWorkingHours(ctx context.Context, weekday int, isOpen bool, startTime, endTime string) (*domain.WorkingHours, error) {
	if weekday < 0 || weekday > 6 {
		return nil, ErrInvalidDate
	}
	if isOpen {
		startM, err := minutesOfDay(startTime)
		if err != nil {
			return nil, ErrInvalidTime
		}
		endM, err := minutesOfDay(endTime)
		if err != nil {
			return nil, ErrInvalidTime
		}
		if endM <= startM {
			return nil, ErrInvalidRange
		}
	}

	hours := domain.WorkingHours{
		Weekday:   weekday,
		IsOpen:    isOpen,
		StartTime: startTime,
		EndTime:   endTime,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "weekday"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_open", "start_time", "end_time", "updated_at"}),
	}).Create(&hours).Error
	if err != nil {
		return nil, err
	}
	return &hours, nil
}

func (s *Service) CreateBlock(ctx context.Context, block *domain.BlockedSlot) error {
	if _, err := time.Parse(domain.DateFormat, block.Date); err != nil {
		return ErrInvalidDate
	}
	if block.AllDay {
		block.Time = nil
		exists, err := s.hasAllDayBlock(s.db.WithContext(ctx), block.Date)
		if err != nil {
			return err
		}
		if exists {
			return ErrDayAlreadyBlocked
		}
	} else {
		if block.Time == nil {
			return ErrInvalidTime
		}
		if _, err := minutesOfDay(*block.Time); err != nil {
			return ErrInvalidTime
		}
	}
	return s.db.WithContext(ctx).Create(block).Error
}

func (s *Service) DeleteBlock(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&domain.BlockedSlot{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListBlocks(ctx context.Context, date string) ([]domain.BlockedSlot, error) {
	var out []domain.BlockedSlot
	err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("all_day DESC, time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) hoursForWeekday(db *gorm.DB, weekday int) (*domain.WorkingHours, error) {
	var hours domain.WorkingHours
	err := db.Where("weekday = ?", weekday).First(&hours).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hours, nil
}

func (s *Service) hasAllDayBlock(db *gorm.DB, date string) (bool, error) {
	var cnt int64
	err := db.Model(&domain.BlockedSlot{}).
		Where("date = ? AND all_day = ?", date, true).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (s *Service) blockedTimes(db *gorm.DB, date string) (map[string]bool, error) {
	var blocks []domain.BlockedSlot
	err := db.Where("date = ? AND all_day = ?", date, false).Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if b.Time != nil {
			out[*b.Time] = true
		}
	}
	return out, nil
}

func (s *Service) reservedTimes(db *gorm.DB, date string) (map[string]bool, error) {
	var times []string
	err := db.Model(&domain.Reservation{}).
		Where("date = ? AND status IN ?", date,
			[]domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed}).
		Pluck("time", &times).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(times))
	for _, t := range times {
		out[t] = true
	}
	return out, nil
}

// minutesOfDay parses "HH:MM" into minutes since midnight. Times are local
// wall-clock values; no timezone conversion happens in the engine.
func minutesOfDay(t string) (int, error) {
	parts := strings.SplitN(t, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q", t)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", t)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", t)
	}
	return h*60 + m, nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
