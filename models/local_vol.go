package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
	"github.com/sirupsen/logrus"
)

var ErrLocalVolConfig = errors.New("local vol diffusion config")

// LocalVolSpec configures a single-asset local-volatility diffusion.
type LocalVolSpec struct {
	Name     string // factor name
	Surface  VolSurface
	Forwards ForwardCurve
	Start    time.Time
	Expiry   time.Time
	Steps    int
	// PastFixings seed path values on grid dates before Start.
	PastFixings map[time.Time]float64
	// FXSurface and Correlation give the quanto drift adjustment. Correlation must be zero
	// when FXSurface is nil.
	FXSurface   ATMVolSurface
	Correlation float64
}

func (s LocalVolSpec) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: empty factor name", ErrLocalVolConfig)
	case s.Steps <= 0:
		return fmt.Errorf("%w: %s: steps %d must be positive", ErrLocalVolConfig, s.Name, s.Steps)
	case !s.Expiry.After(s.Start):
		return fmt.Errorf("%w: %s: expiry %s not after start %s", ErrLocalVolConfig, s.Name,
			s.Expiry.Format(time.DateOnly), s.Start.Format(time.DateOnly))
	case s.Surface == nil:
		return fmt.Errorf("%w: %s: nil vol surface", ErrLocalVolConfig, s.Name)
	case s.Forwards == nil:
		return fmt.Errorf("%w: %s: nil forward curve", ErrLocalVolConfig, s.Name)
	case s.FXSurface == nil && s.Correlation != 0:
		return fmt.Errorf("%w: %s: correlation %g without an fx surface", ErrLocalVolConfig, s.Name, s.Correlation)
	case math.Abs(s.Correlation) > 1:
		return fmt.Errorf("%w: %s: correlation %g outside [-1, 1]", ErrLocalVolConfig, s.Name, s.Correlation)
	}
	return nil
}

// LocalVolDiffusion simulates one asset under a local vol calibrated from an implied vol
// surface. Levels overwrite the normals the engine wrote into the factor's lanes.
type LocalVolDiffusion struct {
	paths.Lifecycle
	spec LocalVolSpec

	factor   int
	startIdx int
	fixings  []float64 // by grid step, for steps before startIdx
	spot     float64
	dt       []float64
	sqrtDt   []float64
	drifts   []float64
	lvInterp []variancePredictor // interval i covers step i → i+1
}

func NewLocalVolDiffusion(spec LocalVolSpec) (*LocalVolDiffusion, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &LocalVolDiffusion{spec: spec}, nil
}

func (d *LocalVolDiffusion) Name() string            { return d.spec.Name }
func (d *LocalVolDiffusion) Kind() paths.ProcessKind { return paths.KindDiffusion }
func (d *LocalVolDiffusion) IsComplete() bool        { return d.IsResolved() }

// SimulationDates are the start date and Steps evenly spaced dates through expiry,
// truncated to the day.
func (d *LocalVolDiffusion) SimulationDates() []time.Time {
	span := d.spec.Expiry.Sub(d.spec.Start)
	dates := []time.Time{d.spec.Start}
	for i := 1; i <= d.spec.Steps; i++ {
		step := time.Duration(float64(span) * float64(i) / float64(d.spec.Steps))
		dates = append(dates, d.spec.Start.Add(step))
	}
	return dates
}

func (d *LocalVolDiffusion) SetupFeatures(reg *paths.FeatureRegistry) error {
	if err := d.Register(d.Name()); err != nil {
		return err
	}
	if _, err := reg.Mapping().AddDimension(d.spec.Name); err != nil {
		return err
	}
	grid := reg.TimeSteps()
	for date := range d.spec.PastFixings {
		if date.Before(d.spec.Start) {
			if err := grid.AddDate(date); err != nil {
				return err
			}
		}
	}
	return grid.AddDates(d.SimulationDates()...)
}

func (d *LocalVolDiffusion) Finish(reg *paths.FeatureRegistry) error {
	if err := d.Resolve(d.Name(), reg); err != nil {
		return err
	}
	var err error
	if d.factor, err = reg.Mapping().Index(d.spec.Name); err != nil {
		return err
	}
	grid := reg.TimeSteps()
	if d.startIdx, err = grid.DateIndex(d.spec.Start); err != nil {
		return err
	}
	dates, times := grid.Dates(), grid.Times()
	if times[d.startIdx] < 0 {
		return fmt.Errorf("%w: %s: start %s before build date", ErrLocalVolConfig, d.Name(),
			d.spec.Start.Format(time.DateOnly))
	}
	if err := d.resolveFixings(dates); err != nil {
		return err
	}

	n := len(dates)
	d.dt, d.sqrtDt = grid.TimeSteps(), grid.TimeStepsSqrt()
	fwds := make([]float64, n)
	atmVols := make([]float64, n)
	for i, date := range dates {
		if i < d.startIdx {
			continue
		}
		fwds[i] = d.spec.Forwards.Forward(date)
		atmVols[i] = d.spec.Surface.VolForDelta(0.5, times[i], fwds[i])
	}
	// paths start on the forward for Start, which is spot when Start is the build date
	d.spot = fwds[d.startIdx]

	d.lvInterp = make([]variancePredictor, max(n-1, 0))
	floored := 0
	for i := d.startIdx; i < n-1; i++ {
		t1, t2 := times[i], times[i+1]
		if i == d.startIdx || atmVols[i]*math.Sqrt(t1) < 1e-12 {
			d.lvInterp[i] = constantVariance(forwardATMVariance(d.spec.Surface, t1, t2, fwds[i], fwds[i+1]))
			continue
		}
		strikes := strikeGrid(fwds[i], t1, atmVols[i])
		vars, f := localVariance(d.spec.Surface, strikes, t1, t2, fwds[i], fwds[i+1])
		floored += f
		if d.lvInterp[i], err = fitVariance(strikes, vars); err != nil {
			return fmt.Errorf("%s: local variance at %s: %w", d.Name(), dates[i].Format(time.DateOnly), err)
		}
	}
	if floored > 0 {
		logrus.Debugf("%s: floored %d negative local variance nodes", d.Name(), floored)
	}

	d.drifts = make([]float64, n)
	prev := d.spot * d.driftAdjustment(atmVols[d.startIdx], times[d.startIdx])
	for i := d.startIdx + 1; i < n; i++ {
		s := fwds[i] * d.driftAdjustment(atmVols[i], times[i])
		d.drifts[i] = math.Log(s/prev) / d.dt[i]
		prev = s
	}
	return nil
}

// driftAdjustment is the quanto factor exp(σ·σfx·t·ρ), or one without an FX surface.
func (d *LocalVolDiffusion) driftAdjustment(atmVol, t float64) float64 {
	if d.spec.FXSurface == nil {
		return 1
	}
	fxVol := d.spec.FXSurface.ForwardATMVol(0, t)
	return math.Exp(atmVol * fxVol * t * d.spec.Correlation)
}

func (d *LocalVolDiffusion) resolveFixings(dates []time.Time) error {
	d.fixings = make([]float64, d.startIdx)
	byDay := make(map[string]float64, len(d.spec.PastFixings))
	for date, v := range d.spec.PastFixings {
		byDay[date.Format(time.DateOnly)] = v
	}
	var missing []string
	for i := 0; i < d.startIdx; i++ {
		key := dates[i].Format(time.DateOnly)
		v, ok := byDay[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		d.fixings[i] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s: no past fixing for %v", ErrLocalVolConfig, d.Name(), missing)
	}
	return nil
}

func (d *LocalVolDiffusion) Process(block *paths.PathBlock) error {
	if err := d.Begin(d.Name()); err != nil {
		return err
	}
	width := block.VectorWidth()
	prev := make([]float64, width)
	for p := 0; p < block.NumberOfPaths(); p += width {
		steps := block.StepsForFactor(p, d.factor)
		for i, v := range d.fixings {
			steps.Set(i, v)
		}
		steps.Set(d.startIdx, d.spot)
		for l := range prev {
			prev[l] = d.spot
		}
		for step := d.startIdx + 1; step < steps.Len(); step++ {
			lanes := steps.At(step)
			lv := d.lvInterp[step-1]
			dt, sqrtDt, mu := d.dt[step], d.sqrtDt[step], d.drifts[step]
			for l, z := range lanes {
				vol := math.Sqrt(math.Max(0, lv.Predict(prev[l])))
				prev[l] *= math.Exp((mu-0.5*vol*vol)*dt + vol*sqrtDt*z)
				lanes[l] = prev[l]
			}
		}
	}
	return nil
}
