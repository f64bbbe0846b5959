package payoffs

import (
	"fmt"
	"math"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
)

type BarrierType int

const (
	// KnockIn pays when the path leaves the range on both sides within the window.
	KnockIn BarrierType = iota
	// KnockOut pays when the path stays inside the range for the whole window.
	KnockOut
)

func (b BarrierType) String() string {
	if b == KnockIn {
		return "KI"
	}
	return "KO"
}

// DoubleNoTouchSpec describes a range digital observed on every grid date in
// [ObservationStart, ObservationEnd].
type DoubleNoTouchSpec struct {
	ID               string
	AssetID          string
	ObservationStart time.Time
	ObservationEnd   time.Time
	Lower            float64
	Upper            float64
	Notional         float64
	Barrier          BarrierType
	Currency         string
	PaymentDate      time.Time
}

// DoubleNoTouch accumulates a fixed notional per path depending on barrier breaches.
// The observation is discrete: only dates some process put on the grid are checked.
type DoubleNoTouch struct {
	paths.Lifecycle
	accumulator
	spec DoubleNoTouchSpec

	factor     int
	start, end int
}

func NewDoubleNoTouch(spec DoubleNoTouchSpec) (*DoubleNoTouch, error) {
	switch {
	case spec.AssetID == "":
		return nil, fmt.Errorf("%w: double no touch %s has no asset", ErrInvalidPayoff, spec.ID)
	case spec.ObservationEnd.Before(spec.ObservationStart):
		return nil, fmt.Errorf("%w: %s: observation end %s before start %s", ErrInvalidPayoff, spec.ID,
			spec.ObservationEnd.Format(time.DateOnly), spec.ObservationStart.Format(time.DateOnly))
	case !(spec.Lower < spec.Upper):
		return nil, fmt.Errorf("%w: %s: lower barrier %g not below upper %g", ErrInvalidPayoff, spec.ID,
			spec.Lower, spec.Upper)
	case spec.Barrier != KnockIn && spec.Barrier != KnockOut:
		return nil, fmt.Errorf("%w: %s: barrier type %d", ErrInvalidPayoff, spec.ID, spec.Barrier)
	}
	d := &DoubleNoTouch{spec: spec}
	d.name = spec.ID
	if d.name == "" {
		d.name = fmt.Sprintf("dnt:%s:%s", spec.AssetID, spec.Barrier)
	}
	d.payDate = spec.PaymentDate
	if d.payDate.IsZero() {
		d.payDate = spec.ObservationEnd
	}
	return d, nil
}

func (d *DoubleNoTouch) Name() string            { return d.name }
func (d *DoubleNoTouch) Kind() paths.ProcessKind { return paths.KindPayoff }
func (d *DoubleNoTouch) IsComplete() bool        { return d.IsResolved() }
func (d *DoubleNoTouch) Spec() DoubleNoTouchSpec { return d.spec }

func (d *DoubleNoTouch) SetupFeatures(reg *paths.FeatureRegistry) error {
	if err := d.Register(d.Name()); err != nil {
		return err
	}
	return reg.TimeSteps().AddDates(d.spec.ObservationStart, d.spec.ObservationEnd)
}

func (d *DoubleNoTouch) Finish(reg *paths.FeatureRegistry) error {
	if err := d.Resolve(d.Name(), reg); err != nil {
		return err
	}
	var err error
	if d.factor, err = reg.Mapping().Index(d.spec.AssetID); err != nil {
		return fmt.Errorf("%s: %w", d.Name(), err)
	}
	grid := reg.TimeSteps()
	if d.start, err = grid.DateIndex(d.spec.ObservationStart); err != nil {
		return fmt.Errorf("%s: %w", d.Name(), err)
	}
	if d.end, err = grid.DateIndex(d.spec.ObservationEnd); err != nil {
		return fmt.Errorf("%s: %w", d.Name(), err)
	}
	d.init(reg)
	return nil
}

func (d *DoubleNoTouch) Process(block *paths.PathBlock) error {
	if err := d.Begin(d.Name()); err != nil {
		return err
	}
	width := block.VectorWidth()
	lo := make([]float64, width)
	hi := make([]float64, width)
	for path := 0; path < block.NumberOfPaths(); path += width {
		steps := block.StepsForFactor(path, d.factor)
		for l := range lo {
			lo[l], hi[l] = math.Inf(1), math.Inf(-1)
		}
		for ix := d.start; ix <= d.end; ix++ {
			for l, v := range steps.At(ix) {
				lo[l] = math.Min(lo[l], v)
				hi[l] = math.Max(hi[l], v)
			}
		}
		out := d.values[block.GlobalPathIndex()+path:][:width]
		for l := range out {
			down, up := lo[l] < d.spec.Lower, hi[l] > d.spec.Upper
			var hit bool
			if d.spec.Barrier == KnockIn {
				hit = down && up
			} else {
				hit = !down && !up
			}
			out[l] = 0
			if hit {
				out[l] = d.spec.Notional
			}
		}
	}
	if d.add(block.NumberOfPaths()) {
		d.Done()
	}
	return nil
}
