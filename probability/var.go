package probability

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoSamples = errors.New("no samples")

func checkLevel(level float64) error {
	if level <= 0 || level >= 1 {
		return fmt.Errorf("confidence level %g outside (0, 1)", level)
	}
	return nil
}

// losses returns -pnl sorted ascending.
func losses(pnl []float64) []float64 {
	l := make([]float64, len(pnl))
	copy(l, pnl)
	floats.Scale(-1, l)
	sort.Float64s(l)
	return l
}

// VaR is the loss not exceeded with probability confidenceLevel, from per-path P&L.
func VaR(pnl []float64, confidenceLevel float64) (float64, error) {
	if len(pnl) == 0 {
		return 0, ErrNoSamples
	}
	if err := checkLevel(confidenceLevel); err != nil {
		return 0, err
	}
	return stat.Quantile(confidenceLevel, stat.Empirical, losses(pnl), nil), nil
}

// ExpectedShortfall is the mean loss at or beyond VaR.
func ExpectedShortfall(pnl []float64, confidenceLevel float64) (float64, error) {
	if len(pnl) == 0 {
		return 0, ErrNoSamples
	}
	if err := checkLevel(confidenceLevel); err != nil {
		return 0, err
	}
	l := losses(pnl)
	v := stat.Quantile(confidenceLevel, stat.Empirical, l, nil)
	i := sort.SearchFloat64s(l, v)
	return stat.Mean(l[i:], nil), nil
}

// PFE is the quantile of positive exposure across paths.
func PFE(values []float64, quantile float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoSamples
	}
	if err := checkLevel(quantile); err != nil {
		return 0, err
	}
	exposure := make([]float64, len(values))
	for i, v := range values {
		if v > 0 {
			exposure[i] = v
		}
	}
	sort.Float64s(exposure)
	return stat.Quantile(quantile, stat.Empirical, exposure, nil), nil
}
