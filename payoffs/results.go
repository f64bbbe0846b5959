package payoffs

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bcdannyboy/pathsim/models"
	"github.com/bcdannyboy/pathsim/paths"
	"github.com/bcdannyboy/pathsim/probability"
	"gonum.org/v1/gonum/floats"
)

// accumulator holds one result per global path. Blocks write disjoint ranges, so the
// buffer needs no lock; the processed counter tells readers when every path is in.
type accumulator struct {
	name      string
	values    []float64
	processed atomic.Int64
	buildDate time.Time
	payDate   time.Time
}

func (a *accumulator) init(reg *paths.FeatureRegistry) {
	a.values = make([]float64, reg.Engine().NumberOfPaths)
	a.processed.Store(0)
	a.buildDate = reg.TimeSteps().BuildDate()
}

// add records that n more paths are final and reports whether the buffer is now full.
func (a *accumulator) add(n int) bool {
	return int(a.processed.Add(int64(n))) == len(a.values)
}

func (a *accumulator) done() error {
	if a.values == nil || int(a.processed.Load()) != len(a.values) {
		return fmt.Errorf("%w: %s has %d of %d paths", paths.ErrIncomplete, a.name,
			a.processed.Load(), len(a.values))
	}
	return nil
}

func (a *accumulator) summary() (probability.Summary, error) {
	if err := a.done(); err != nil {
		return probability.Summary{}, err
	}
	return probability.Summarize(a.values), nil
}

// Mean is the average undiscounted payoff.
func (a *accumulator) Mean() (float64, error) {
	s, err := a.summary()
	return s.Mean, err
}

// StdDev is the sample standard deviation of the per-path payoffs.
func (a *accumulator) StdDev() (float64, error) {
	s, err := a.summary()
	return s.StdDev, err
}

// StandardError is StdDev/√N, the uncertainty of Mean.
func (a *accumulator) StandardError() (float64, error) {
	s, err := a.summary()
	return s.StandardError, err
}

// ResultsByPath returns a copy of the per-path payoffs in global path order.
func (a *accumulator) ResultsByPath() ([]float64, error) {
	if err := a.done(); err != nil {
		return nil, err
	}
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out, nil
}

// PV discounts Mean from the payment date to the build date.
func (a *accumulator) PV(curve models.DiscountCurve) (float64, error) {
	m, err := a.Mean()
	if err != nil {
		return 0, err
	}
	return m * curve.DiscountFactor(a.buildDate, a.payDate), nil
}

// PVByPath discounts every path's payoff.
func (a *accumulator) PVByPath(curve models.DiscountCurve) ([]float64, error) {
	out, err := a.ResultsByPath()
	if err != nil {
		return nil, err
	}
	floats.Scale(curve.DiscountFactor(a.buildDate, a.payDate), out)
	return out, nil
}

func (a *accumulator) PaymentDate() time.Time { return a.payDate }
