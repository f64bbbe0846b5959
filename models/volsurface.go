package models

import (
	"fmt"
	"math"
	"sort"
)

// VolSurface returns Black implied vols by absolute strike or by forward delta. Expiries
// are year fractions from the build date. Call deltas lie in (0, 1), put deltas in (-1, 0).
type VolSurface interface {
	VolForStrike(strike, expiry, forward float64) float64
	VolForDelta(delta, expiry, forward float64) float64
}

// ATMVolSurface returns the at-the-money forward vol between two year fractions.
type ATMVolSurface interface {
	ForwardATMVol(start, end float64) float64
}

// ConstantVolSurface has one vol everywhere.
type ConstantVolSurface struct {
	Vol float64
}

func (s ConstantVolSurface) VolForStrike(_, _, _ float64) float64 { return s.Vol }
func (s ConstantVolSurface) VolForDelta(_, _, _ float64) float64  { return s.Vol }
func (s ConstantVolSurface) ForwardATMVol(_, _ float64) float64   { return s.Vol }

// GridVolSurface interpolates implied vols bilinearly over a strike × expiry grid with
// flat extrapolation. Vols[i][j] is the vol at Times[i], Strikes[j].
type GridVolSurface struct {
	Strikes []float64
	Times   []float64
	Vols    [][]float64
	// ATMStrike is the strike ForwardATMVol reads at.
	ATMStrike float64
}

// NewGridVolSurface checks the grid shape and ordering.
func NewGridVolSurface(strikes, times []float64, vols [][]float64, atmStrike float64) (*GridVolSurface, error) {
	if len(strikes) == 0 || len(times) == 0 {
		return nil, fmt.Errorf("vol grid needs strikes and times")
	}
	if !increasing(strikes) || !increasing(times) {
		return nil, fmt.Errorf("vol grid axes must be strictly increasing")
	}
	if len(vols) != len(times) {
		return nil, fmt.Errorf("vol grid has %d rows for %d times", len(vols), len(times))
	}
	for i, row := range vols {
		if len(row) != len(strikes) {
			return nil, fmt.Errorf("vol grid row %d has %d vols for %d strikes", i, len(row), len(strikes))
		}
	}
	return &GridVolSurface{Strikes: strikes, Times: times, Vols: vols, ATMStrike: atmStrike}, nil
}

func increasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

// bracket returns i and weight w so that x ≈ (1-w)·xs[i] + w·xs[i+1], clamped to the ends.
func bracket(xs []float64, x float64) (int, float64) {
	n := len(xs)
	if n == 1 || x <= xs[0] {
		return 0, 0
	}
	if x >= xs[n-1] {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(xs, x) - 1
	return i, (x - xs[i]) / (xs[i+1] - xs[i])
}

func (s *GridVolSurface) VolForStrike(strike, expiry, _ float64) float64 {
	ti, xt := bracket(s.Times, expiry)
	si, xs := bracket(s.Strikes, strike)
	at := func(t, k int) float64 {
		t = clamp(t, 0, len(s.Times)-1)
		k = clamp(k, 0, len(s.Strikes)-1)
		return s.Vols[t][k]
	}
	v00 := at(ti, si)
	v01 := at(ti, si+1)
	v10 := at(ti+1, si)
	v11 := at(ti+1, si+1)
	return (1-xt)*(1-xs)*v00 + xt*(1-xs)*v10 + (1-xt)*xs*v01 + xt*xs*v11
}

// VolForDelta finds the strike whose delta at its own vol equals delta by fixed-point
// iteration from the ATM-forward vol.
func (s *GridVolSurface) VolForDelta(delta, expiry, forward float64) float64 {
	vol := s.VolForStrike(forward, expiry, forward)
	if expiry <= 0 {
		return vol
	}
	for i := 0; i < maxIterations; i++ {
		k := AbsoluteStrikeFromDelta(forward, delta, expiry, vol)
		next := s.VolForStrike(k, expiry, forward)
		if math.Abs(next-vol) < epsilon {
			return next
		}
		vol = next
	}
	return vol
}

// ForwardATMVol reads total variance at ATMStrike on both ends.
func (s *GridVolSurface) ForwardATMVol(start, end float64) float64 {
	if end <= start {
		return s.VolForStrike(s.ATMStrike, end, s.ATMStrike)
	}
	v1 := s.VolForStrike(s.ATMStrike, start, s.ATMStrike)
	v2 := s.VolForStrike(s.ATMStrike, end, s.ATMStrike)
	w1 := v1 * v1 * math.Max(start, 0)
	w2 := v2 * v2 * end
	return math.Sqrt(math.Max(w2-w1, 0) / (end - math.Max(start, 0)))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
