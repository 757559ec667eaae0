package giftcard

import "errors"

var (
	ErrInvalidCard   = errors.New("gift card is not redeemable")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNotFound      = errors.New("gift card not found")
	ErrCodeExhausted = errors.New("could not generate a unique gift card code")
)
