package service

import (
	"errors"

	"github.com/okian/learnstyle/internal/domain/idempotency"
)

var (
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("service stopped")

	// ErrInFlight is returned when another request holds the same
	// idempotency key.
	ErrInFlight = idempotency.ErrInFlight
)
