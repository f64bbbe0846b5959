package payoffs

import "errors"

var (
	// ErrUnsupportedInstrument is returned for instruments no payoff can evaluate.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")
	ErrInvalidPayoff         = errors.New("invalid payoff")
)
