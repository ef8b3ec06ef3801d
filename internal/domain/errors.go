package domain

import (
	"errors"
	"fmt"
)

// ErrMissingChannelCredential is returned when an automation tied to the
// external channel is saved while no channel credential is configured.
// The save fails fast and performs no write.
var ErrMissingChannelCredential = errors.New("channel credential is not configured")

// ErrVersionConflict is returned when an optimistic-concurrency update finds
// the record was modified (or deleted) since it was read.
var ErrVersionConflict = errors.New("record was modified concurrently")

// ErrNotFound is returned when an id does not resolve to a record.
var ErrNotFound = errors.New("record not found")

// DeliveryError is an adapter-reported failure for a single recipient.
// It drives the retry state machine and is never propagated past the
// dispatch layer.
type DeliveryError struct {
	Kind string // "transport" or "rejected"
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
