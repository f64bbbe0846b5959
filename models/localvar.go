package models

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// deltaStrikes is the size of the per-step strike grid.
const deltaStrikes = 200

// variancePredictor maps a spot level to a local variance.
type variancePredictor interface {
	Predict(x float64) float64
}

type constantVariance float64

func (c constantVariance) Predict(float64) float64 { return float64(c) }

// strikeGrid spaces strikes evenly in put delta, -(k+½)/n for k in [0, n), at the ATM vol
// of expiry t. Strikes come out increasing.
func strikeGrid(forward, t, atmVol float64) []float64 {
	strikes := make([]float64, deltaStrikes)
	for k := range strikes {
		delta := -(float64(k) + 0.5) / deltaStrikes
		strikes[k] = AbsoluteStrikeFromDelta(forward, delta, t, atmVol)
	}
	return strikes
}

// localVariance evaluates Dupire's formula on call prices for each strike between
// expiries t1 < t2:
//
//	σ²(K) = [∂C/∂T − μ(C − K·∂C/∂K)] / (½K²·∂²C/∂K²)
//
// with undiscounted calls, μ the forward's log drift over the interval, and the strike
// derivatives taken at the time midpoint. Nodes where the result is not a finite
// non-negative number are floored to zero. The returned count is the number of floored nodes.
func localVariance(surface VolSurface, strikes []float64, t1, t2, f1, f2 float64) ([]float64, int) {
	n := len(strikes)
	dt := t2 - t1
	tm := 0.5 * (t1 + t2)
	fm := math.Sqrt(f1 * f2)
	mu := math.Log(f2/f1) / dt

	c1 := make([]float64, n)
	c2 := make([]float64, n)
	cm := make([]float64, n)
	for i, k := range strikes {
		c1[i] = BlackPrice(f1, k, t1, surface.VolForStrike(k, t1, f1), true)
		c2[i] = BlackPrice(f2, k, t2, surface.VolForStrike(k, t2, f2), true)
		cm[i] = BlackPrice(fm, k, tm, surface.VolForStrike(k, tm, fm), true)
	}

	gamma := make([]float64, n)
	slope := make([]float64, n)
	for i := 1; i < n-1; i++ {
		h0 := strikes[i] - strikes[i-1]
		h1 := strikes[i+1] - strikes[i]
		gamma[i] = 2 * (h0*cm[i+1] - (h0+h1)*cm[i] + h1*cm[i-1]) / (h0 * h1 * (h0 + h1))
		slope[i] = (h0*h0*cm[i+1] + (h1*h1-h0*h0)*cm[i] - h1*h1*cm[i-1]) / (h0 * h1 * (h0 + h1))
	}

	vars := make([]float64, n)
	floored := 0
	for i := 1; i < n-1; i++ {
		k := strikes[i]
		theta := (c2[i] - c1[i]) / dt
		v := (theta - mu*(cm[i]-k*slope[i])) / (0.5 * k * k * gamma[i])
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
			floored++
		}
		vars[i] = v
	}
	if n > 2 {
		vars[0] = vars[1]
		vars[n-1] = vars[n-2]
	}
	return vars, floored
}

// fitVariance builds a linear, flat-extrapolated interpolator over strikes.
func fitVariance(strikes, vars []float64) (variancePredictor, error) {
	pl := &interp.PiecewiseLinear{}
	if err := pl.Fit(strikes, vars); err != nil {
		return nil, err
	}
	return pl, nil
}

// forwardATMVariance is the ATM forward variance between t1 and t2, taken from the
// surface's own ATM curve when it has one.
func forwardATMVariance(surface VolSurface, t1, t2, f1, f2 float64) float64 {
	if atm, ok := surface.(ATMVolSurface); ok {
		v := atm.ForwardATMVol(t1, t2)
		return v * v
	}
	v2 := surface.VolForStrike(f2, t2, f2)
	w2 := v2 * v2 * t2
	var w1 float64
	if t1 > 0 {
		v1 := surface.VolForStrike(f1, t1, f1)
		w1 = v1 * v1 * t1
	}
	return math.Max(w2-w1, 0) / (t2 - math.Max(t1, 0))
}
