package paths

import "errors"

var (
	// ErrRegistryFrozen is returned when a date or factor is requested after Resolve.
	ErrRegistryFrozen = errors.New("feature registry already resolved")
	// ErrAlreadyResolved is returned by a second Resolve call.
	ErrAlreadyResolved = errors.New("feature registry resolved twice")
	// ErrNotResolved is returned when a lookup or Process call happens before resolution.
	ErrNotResolved = errors.New("feature registry not resolved")
	// ErrIncomplete is returned when aggregates are read before every path was processed.
	ErrIncomplete = errors.New("simulation incomplete")

	ErrUnknownDate    = errors.New("date not present in time grid")
	ErrUnknownFactor  = errors.New("factor not present in factor map")
	ErrUnknownFeature = errors.New("feature not registered")
	ErrInvalidConfig  = errors.New("invalid engine config")
)
