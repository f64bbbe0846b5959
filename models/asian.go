package models

import "math"

// TurnbullWakemanPV prices an arithmetic-average option on a lognormal forward with flat
// vol by matching the first two moments of the discrete average. fixingTimes are year
// fractions from the build date; fixings already past contribute their known value through
// knownAverage, weighted by the fraction of fixings that are past.
func TurnbullWakemanPV(forward, strike, vol, df float64, fixingTimes []float64, knownAverage float64, pastFixings int, isCall bool) float64 {
	total := len(fixingTimes) + pastFixings
	if total == 0 {
		return 0
	}
	n := float64(len(fixingTimes))
	wFuture := n / float64(total)
	// the strike the remaining fixings have to beat
	k := strike
	if pastFixings > 0 {
		k = (strike - knownAverage*float64(pastFixings)/float64(total)) / wFuture
	}
	if len(fixingTimes) == 0 {
		return df * intrinsic(knownAverage, strike, isCall)
	}
	if k <= 0 {
		if !isCall {
			return 0
		}
		return df * wFuture * (forward - k)
	}

	m1 := forward
	var m2 float64
	for _, ti := range fixingTimes {
		for _, tj := range fixingTimes {
			m2 += math.Exp(vol * vol * math.Max(math.Min(ti, tj), 0))
		}
	}
	m2 *= forward * forward / (n * n)

	tLast := fixingTimes[len(fixingTimes)-1]
	if tLast <= 0 {
		return df * wFuture * intrinsic(m1, k, isCall)
	}
	sigmaA := math.Sqrt(math.Max(math.Log(m2/(m1*m1)), 0) / tLast)
	return df * wFuture * BlackPrice(m1, k, tLast, sigmaA, isCall)
}

func intrinsic(f, k float64, isCall bool) float64 {
	if isCall {
		return math.Max(f-k, 0)
	}
	return math.Max(k-f, 0)
}
