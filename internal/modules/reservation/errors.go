package reservation

import "errors"

var (
	ErrSlotUnavailable     = errors.New("slot is not available")
	ErrDiscountInvalid     = errors.New("discount cannot be applied")
	ErrDiscountAlreadyUsed = errors.New("discount has already been used")
	ErrGiftCardInvalid     = errors.New("gift card cannot be applied")
	ErrUnknownService      = errors.New("unknown or inactive service")
	ErrNotModifiable       = errors.New("reservation can no longer be changed")
	ErrInvalidStatus       = errors.New("invalid status value")
	ErrValidation          = errors.New("invalid reservation data")
	ErrNotFound            = errors.New("reservation not found")
)
