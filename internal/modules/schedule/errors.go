package schedule

import "errors"

var (
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrInvalidDate       = errors.New("invalid date format")
	ErrInvalidTime       = errors.New("invalid time format")
	ErrInvalidRange      = errors.New("invalid working hours range")
	ErrDayAlreadyBlocked = errors.New("day already has an all-day block")
	ErrNotFound          = errors.New("not found")
)
