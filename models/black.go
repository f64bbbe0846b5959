package models

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	maxIterations = 100
	epsilon       = 1e-10
)

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func blackD1(forward, strike, t, vol float64) float64 {
	return (math.Log(forward/strike) + 0.5*vol*vol*t) / (vol * math.Sqrt(t))
}

// BlackPrice is the undiscounted Black-76 option price. With no time value left it
// returns intrinsic.
func BlackPrice(forward, strike, t, vol float64, isCall bool) float64 {
	if t <= 0 || vol <= 0 || strike <= 0 {
		if isCall {
			return math.Max(forward-strike, 0)
		}
		return math.Max(strike-forward, 0)
	}
	d1 := blackD1(forward, strike, t, vol)
	d2 := d1 - vol*math.Sqrt(t)
	if isCall {
		return forward*normCDF(d1) - strike*normCDF(d2)
	}
	return strike*normCDF(-d2) - forward*normCDF(-d1)
}

// BlackPV discounts BlackPrice with df.
func BlackPV(forward, strike, df, t, vol float64, isCall bool) float64 {
	return df * BlackPrice(forward, strike, t, vol, isCall)
}

// BlackDelta is the undiscounted forward delta.
func BlackDelta(forward, strike, t, vol float64, isCall bool) float64 {
	if t <= 0 || vol <= 0 {
		switch {
		case isCall && forward > strike:
			return 1
		case !isCall && forward < strike:
			return -1
		}
		return 0
	}
	d1 := blackD1(forward, strike, t, vol)
	if isCall {
		return normCDF(d1)
	}
	return normCDF(d1) - 1
}

func blackVega(forward, strike, t, vol float64) float64 {
	return forward * normPDF(blackD1(forward, strike, t, vol)) * math.Sqrt(t)
}

// AbsoluteStrikeFromDelta inverts the forward delta analytically at a fixed vol. Put
// deltas lie in (-1, 0), call deltas in (0, 1).
func AbsoluteStrikeFromDelta(forward, delta, t, vol float64) float64 {
	if delta < 0 {
		delta += 1
	}
	sqrtT := vol * math.Sqrt(t)
	d1 := distuv.UnitNormal.Quantile(delta)
	return forward * math.Exp(-d1*sqrtT+0.5*sqrtT*sqrtT)
}

// ImpliedVol solves BlackPrice(vol) = price by Newton iteration. NaN when it fails to converge.
func ImpliedVol(price, forward, strike, t float64, isCall bool) float64 {
	sigma := 0.5
	for i := 0; i < maxIterations; i++ {
		diff := BlackPrice(forward, strike, t, sigma, isCall) - price
		if math.Abs(diff) < epsilon {
			return sigma
		}
		vega := blackVega(forward, strike, t, sigma)
		if vega < 1e-14 {
			break
		}
		sigma -= diff / vega
		if sigma <= 0 {
			sigma = 0.0001
		}
	}
	return math.NaN()
}
