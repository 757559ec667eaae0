package discount

import "errors"

var (
	ErrInvalidDiscount   = errors.New("discount is not usable")
	ErrAlreadyUsed       = errors.New("discount already used")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidStatus     = errors.New("invalid discount status")
	ErrInvalidTransition = errors.New("invalid discount status transition")
	ErrNotFound          = errors.New("discount not found")
)
