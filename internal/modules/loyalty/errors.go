package loyalty

import "errors"

var (
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrInvalidCode     = errors.New("invalid referral code")
	ErrNotFound        = errors.New("profile not found")
	ErrCodeExhausted   = errors.New("could not generate a unique referral code")
)
