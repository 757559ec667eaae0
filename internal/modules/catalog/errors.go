package catalog

import "errors"

var (
	ErrNotFound     = errors.New("service not found")
	ErrInvalidPrice = errors.New("price must not be negative")
	ErrInvalidKind  = errors.New("invalid service kind")
)
