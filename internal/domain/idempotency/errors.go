package idempotency

import "errors"

// ErrInFlight is returned by Begin while another request holds the key.
var ErrInFlight = errors.New("idempotency key is already in flight")
