package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bcdannyboy/pathsim/models"
	"github.com/bcdannyboy/pathsim/paths"
	"github.com/bcdannyboy/pathsim/payoffs"
)

// Payoff is what every trade builds into.
type Payoff interface {
	paths.PathProcess
	paths.Aggregator
	PV(curve models.DiscountCurve) (float64, error)
	PVByPath(curve models.DiscountCurve) ([]float64, error)
	PaymentDate() time.Time
}

// Simulation is a scenario wired into processes, ready for an engine.
type Simulation struct {
	BuildDate  time.Time
	Engine     paths.EngineConfig
	Discount   models.DiscountCurve
	Diffusions []*models.LocalVolDiffusion
	Payoffs    []Payoff
}

func (s *Simulation) Processes() []paths.PathProcess {
	out := make([]paths.PathProcess, 0, len(s.Diffusions)+len(s.Payoffs))
	for _, d := range s.Diffusions {
		out = append(out, d)
	}
	for _, p := range s.Payoffs {
		out = append(out, p)
	}
	return out
}

// Build wires the scenario into curves, diffusions and payoffs.
func (s *Scenario) Build() (*Simulation, error) {
	sim := &Simulation{BuildDate: s.BuildDate.Time, Engine: s.EngineConfig()}
	if err := sim.Engine.Validate(); err != nil {
		return nil, err
	}

	var err error
	if sim.Discount, err = s.Discount.build(sim.BuildDate); err != nil {
		return nil, err
	}
	for i, a := range s.Assets {
		lv, err := a.build(sim.BuildDate, sim.Discount)
		if err != nil {
			return nil, fmt.Errorf("asset %d (%s): %w", i, a.Name, err)
		}
		sim.Diffusions = append(sim.Diffusions, lv)
	}
	if len(sim.Diffusions) == 0 {
		return nil, fmt.Errorf("%w: no assets", ErrScenario)
	}
	for i, t := range s.Trades {
		p, err := t.build()
		if err != nil {
			return nil, fmt.Errorf("trade %d (%s): %w", i, t.ID, err)
		}
		sim.Payoffs = append(sim.Payoffs, p)
	}
	return sim, nil
}

func (d Discount) build(buildDate time.Time) (models.DiscountCurve, error) {
	switch {
	case d.FlatRate != nil && len(d.Pillars) > 0:
		return nil, fmt.Errorf("%w: discount has both flat_rate and pillars", ErrScenario)
	case len(d.Pillars) > 0:
		dates, values := pillars(d.Pillars)
		curve, err := models.NewZeroRateCurve(buildDate, dates, values)
		if err != nil {
			return nil, err
		}
		return curve, nil
	case d.FlatRate != nil:
		return models.NewFlatRateCurve(buildDate, *d.FlatRate), nil
	}
	return models.NewFlatRateCurve(buildDate, 0), nil
}

func pillars(ps []Pillar) ([]time.Time, []float64) {
	dates := make([]time.Time, len(ps))
	values := make([]float64, len(ps))
	for i, p := range ps {
		dates[i], values[i] = p.Date.Time, p.Value
	}
	return dates, values
}

func (v Vol) build() (models.VolSurface, error) {
	switch {
	case v.Constant != nil && v.Grid != nil:
		return nil, fmt.Errorf("%w: vol has both constant and grid", ErrScenario)
	case v.Constant != nil:
		return models.ConstantVolSurface{Vol: *v.Constant}, nil
	case v.Grid != nil:
		grid, err := models.NewGridVolSurface(v.Grid.Strikes, v.Grid.Times, v.Grid.Vols, v.Grid.ATMStrike)
		if err != nil {
			return nil, err
		}
		return grid, nil
	}
	return nil, fmt.Errorf("%w: vol needs constant or grid", ErrScenario)
}

func (a Asset) build(buildDate time.Time, disco models.DiscountCurve) (*models.LocalVolDiffusion, error) {
	surface, err := a.Vol.build()
	if err != nil {
		return nil, err
	}
	var fwd models.ForwardCurve
	switch {
	case len(a.Forwards) > 0:
		dates, values := pillars(a.Forwards)
		curve, err := models.NewPillarForwardCurve(buildDate, dates, values)
		if err != nil {
			return nil, err
		}
		fwd = curve
	case a.Spot > 0:
		fwd = models.CurveForward{Spot: a.Spot, BuildDate: buildDate, Curve: disco}
	default:
		return nil, fmt.Errorf("%w: needs forwards or a positive spot", ErrScenario)
	}

	spec := models.LocalVolSpec{
		Name:     a.Name,
		Surface:  surface,
		Forwards: fwd,
		Start:    buildDate,
		Expiry:   a.Expiry.Time,
		Steps:    a.Steps,
	}
	if a.Start != nil {
		spec.Start = a.Start.Time
	}
	if len(a.PastFixings) > 0 {
		spec.PastFixings = make(map[time.Time]float64, len(a.PastFixings))
		for _, p := range a.PastFixings {
			spec.PastFixings[p.Date.Time] = p.Value
		}
	}
	if a.Quanto != nil {
		spec.FXSurface = models.ConstantVolSurface{Vol: a.Quanto.Vol}
		spec.Correlation = a.Quanto.Correlation
	}
	return models.NewLocalVolDiffusion(spec)
}

func parseDirection(s string) (payoffs.Direction, error) {
	switch strings.ToLower(s) {
	case "", "long":
		return payoffs.Long, nil
	case "short":
		return payoffs.Short, nil
	}
	return 0, fmt.Errorf("%w: direction %q", ErrScenario, s)
}

func parseCallPut(s string) (payoffs.OptionType, error) {
	switch strings.ToLower(s) {
	case "call", "c":
		return payoffs.Call, nil
	case "put", "p":
		return payoffs.Put, nil
	}
	return 0, fmt.Errorf("%w: call_put %q", ErrScenario, s)
}

func parseBarrier(s string) (payoffs.BarrierType, error) {
	switch strings.ToUpper(s) {
	case "KI", "KNOCK_IN":
		return payoffs.KnockIn, nil
	case "KO", "KNOCK_OUT":
		return payoffs.KnockOut, nil
	}
	return 0, fmt.Errorf("%w: barrier %q", ErrScenario, s)
}

func optional(d *Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// Weekdays lists Monday to Friday dates in [from, to].
func Weekdays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func (t Trade) fixings() ([]time.Time, error) {
	if len(t.FixingDates) > 0 {
		out := make([]time.Time, len(t.FixingDates))
		for i, d := range t.FixingDates {
			out[i] = d.Time
		}
		return out, nil
	}
	if t.AverageStart == nil || t.AverageEnd == nil {
		return nil, fmt.Errorf("%w: needs fixing_dates or average_start and average_end", ErrScenario)
	}
	return Weekdays(t.AverageStart.Time, t.AverageEnd.Time), nil
}

func (t Trade) asianSwap() (payoffs.AsianSwap, error) {
	dir, err := parseDirection(t.Direction)
	if err != nil {
		return payoffs.AsianSwap{}, err
	}
	dates, err := t.fixings()
	if err != nil {
		return payoffs.AsianSwap{}, err
	}
	return payoffs.AsianSwap{
		ID: t.ID, AssetID: t.Asset, FixingDates: dates, Strike: t.Strike,
		Notional: t.Notional, Direction: dir, PaymentDate: optional(t.PaymentDate),
	}, nil
}

func (t Trade) build() (Payoff, error) {
	if t.Type == "double_no_touch" {
		return t.doubleNoTouch()
	}
	inst, err := t.instrument()
	if err != nil {
		return nil, err
	}
	p, err := payoffs.NewAssetPathPayoff(inst)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (t Trade) instrument() (payoffs.Instrument, error) {
	dir, err := parseDirection(t.Direction)
	if err != nil {
		return nil, err
	}
	switch t.Type {
	case "asian_option":
		cp, err := parseCallPut(t.CallPut)
		if err != nil {
			return nil, err
		}
		dates, err := t.fixings()
		if err != nil {
			return nil, err
		}
		return payoffs.AsianOption{
			ID: t.ID, AssetID: t.Asset, FixingDates: dates, Strike: t.Strike, Notional: t.Notional,
			Direction: dir, CallPut: cp, PaymentDate: optional(t.PaymentDate),
		}, nil
	case "asian_swap":
		return t.asianSwap()
	case "asian_swap_strip":
		strip := payoffs.AsianSwapStrip{ID: t.ID}
		for _, sl := range t.Swaplets {
			if sl.Asset == "" {
				sl.Asset = t.Asset
			}
			if sl.Direction == "" {
				sl.Direction = t.Direction
			}
			sw, err := sl.asianSwap()
			if err != nil {
				return nil, err
			}
			strip.Swaplets = append(strip.Swaplets, sw)
		}
		return strip, nil
	case "european_option":
		cp, err := parseCallPut(t.CallPut)
		if err != nil {
			return nil, err
		}
		if t.Expiry == nil {
			return nil, fmt.Errorf("%w: european_option needs expiry", ErrScenario)
		}
		return payoffs.EuropeanOption{
			ID: t.ID, AssetID: t.Asset, ExpiryDate: t.Expiry.Time, Strike: t.Strike, Notional: t.Notional,
			Direction: dir, CallPut: cp, PaymentDate: optional(t.PaymentDate),
		}, nil
	case "forward":
		if t.Expiry == nil {
			return nil, fmt.Errorf("%w: forward needs expiry", ErrScenario)
		}
		return payoffs.Forward{
			ID: t.ID, AssetID: t.Asset, ExpiryDate: t.Expiry.Time, Strike: t.Strike, Notional: t.Notional,
			Direction: dir, PaymentDate: optional(t.PaymentDate),
		}, nil
	case "asian_basis_swap":
		return payoffs.AsianBasisSwap{ID: t.ID}, nil
	}
	return nil, fmt.Errorf("%w: trade type %q", ErrScenario, t.Type)
}

func (t Trade) doubleNoTouch() (Payoff, error) {
	bt, err := parseBarrier(t.Barrier)
	if err != nil {
		return nil, err
	}
	if t.ObservationStart == nil || t.ObservationEnd == nil {
		return nil, fmt.Errorf("%w: double_no_touch needs observation_start and observation_end", ErrScenario)
	}
	dnt, err := payoffs.NewDoubleNoTouch(payoffs.DoubleNoTouchSpec{
		ID:               t.ID,
		AssetID:          t.Asset,
		ObservationStart: t.ObservationStart.Time,
		ObservationEnd:   t.ObservationEnd.Time,
		Lower:            t.Lower,
		Upper:            t.Upper,
		Notional:         t.Notional,
		Barrier:          bt,
		Currency:         t.Currency,
		PaymentDate:      optional(t.PaymentDate),
	})
	if err != nil {
		return nil, err
	}
	return dnt, nil
}
