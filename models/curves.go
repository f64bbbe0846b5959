package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
	"gonum.org/v1/gonum/interp"
)

// DiscountCurve returns the discount factor from asOf to pay.
type DiscountCurve interface {
	DiscountFactor(asOf, pay time.Time) float64
}

// ForwardCurve returns the asset forward for delivery on date.
type ForwardCurve interface {
	Forward(date time.Time) float64
}

var errPillars = errors.New("curve pillars")

// FlatForwardCurve has the same forward on every date.
type FlatForwardCurve struct {
	Level float64
}

func (c FlatForwardCurve) Forward(time.Time) float64 { return c.Level }

// pillarCurve is a flat-extrapolated linear interpolation over year fractions from an anchor.
type pillarCurve struct {
	anchor time.Time
	single float64
	pl     *interp.PiecewiseLinear
}

func newPillarCurve(anchor time.Time, dates []time.Time, values []float64) (pillarCurve, error) {
	if len(dates) == 0 || len(dates) != len(values) {
		return pillarCurve{}, fmt.Errorf("%w: %d dates for %d values", errPillars, len(dates), len(values))
	}
	c := pillarCurve{anchor: anchor}
	if len(dates) == 1 {
		c.single = values[0]
		return c, nil
	}
	xs := make([]float64, len(dates))
	for i, d := range dates {
		xs[i] = paths.YearFraction(anchor, d)
		if i > 0 && xs[i] <= xs[i-1] {
			return pillarCurve{}, fmt.Errorf("%w: %s is not after %s", errPillars,
				d.Format(time.DateOnly), dates[i-1].Format(time.DateOnly))
		}
	}
	c.pl = &interp.PiecewiseLinear{}
	if err := c.pl.Fit(xs, values); err != nil {
		return pillarCurve{}, fmt.Errorf("%w: %v", errPillars, err)
	}
	return c, nil
}

func (c pillarCurve) at(t float64) float64 {
	if c.pl == nil {
		return c.single
	}
	return c.pl.Predict(t)
}

// PillarForwardCurve interpolates forwards linearly between pillar dates.
type PillarForwardCurve struct {
	curve pillarCurve
}

func NewPillarForwardCurve(buildDate time.Time, dates []time.Time, forwards []float64) (*PillarForwardCurve, error) {
	c, err := newPillarCurve(buildDate, dates, forwards)
	if err != nil {
		return nil, err
	}
	return &PillarForwardCurve{curve: c}, nil
}

func (c *PillarForwardCurve) Forward(date time.Time) float64 {
	return c.curve.at(paths.YearFraction(c.curve.anchor, date))
}

// ZeroRateCurve holds continuously compounded zero rates at pillars.
// DiscountFactor(asOf, pay) = exp(-r(pay)·t(pay)) / exp(-r(asOf)·t(asOf)).
type ZeroRateCurve struct {
	curve pillarCurve
}

func NewZeroRateCurve(buildDate time.Time, dates []time.Time, rates []float64) (*ZeroRateCurve, error) {
	c, err := newPillarCurve(buildDate, dates, rates)
	if err != nil {
		return nil, err
	}
	return &ZeroRateCurve{curve: c}, nil
}

// NewFlatRateCurve is a ZeroRateCurve with a single rate.
func NewFlatRateCurve(buildDate time.Time, rate float64) *ZeroRateCurve {
	return &ZeroRateCurve{curve: pillarCurve{anchor: buildDate, single: rate}}
}

func (c *ZeroRateCurve) DiscountFactor(asOf, pay time.Time) float64 {
	ts := paths.YearFraction(c.curve.anchor, asOf)
	te := paths.YearFraction(c.curve.anchor, pay)
	return math.Exp(-c.curve.at(te)*te) / math.Exp(-c.curve.at(ts)*ts)
}

// CurveForward adapts a DiscountCurve into a ForwardCurve for a spot that drifts at the
// curve's rate: F(d) = spot / DF(build, d).
type CurveForward struct {
	Spot      float64
	BuildDate time.Time
	Curve     DiscountCurve
}

func (c CurveForward) Forward(date time.Time) float64 {
	return c.Spot / c.Curve.DiscountFactor(c.BuildDate, date)
}
