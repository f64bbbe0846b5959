package probability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pnlRange(n int) []float64 {
	// -49 .. 50
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i - n/2 + 1)
	}
	return out
}

func TestVaR(t *testing.T) {
	pnl := pnlRange(100)
	v, err := VaR(pnl, 0.95)
	require.NoError(t, err)
	// losses are -50 .. 49; the 95th percentile is 44
	assert.Equal(t, 44.0, v)

	_, err = VaR(nil, 0.95)
	assert.ErrorIs(t, err, ErrNoSamples)
	_, err = VaR(pnl, 1)
	assert.Error(t, err)
	// input left untouched
	assert.Equal(t, -49.0, pnl[0])
}

func TestExpectedShortfall(t *testing.T) {
	es, err := ExpectedShortfall(pnlRange(100), 0.95)
	require.NoError(t, err)
	// mean of 44 .. 49
	assert.InDelta(t, 46.5, es, 1e-12)

	v, _ := VaR(pnlRange(100), 0.95)
	assert.GreaterOrEqual(t, es, v)
}

func TestPFE(t *testing.T) {
	values := []float64{-5, -1, 0, 2, 4, 6, 8, 10, 12, 14}
	p, err := PFE(values, 0.85)
	require.NoError(t, err)
	assert.Equal(t, 12.0, p)

	p, err = PFE([]float64{-1, -2}, 0.5)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.N)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), s.StdDev, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3)/2, s.StandardError, 1e-12)

	assert.Equal(t, Summary{N: 1, Mean: 7}, Summarize([]float64{7}))
	assert.Equal(t, Summary{}, Summarize(nil))
}
