package payoffs

import (
	"context"
	"testing"
	"time"

	"github.com/bcdannyboy/pathsim/models"
	"github.com/bcdannyboy/pathsim/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func TestAsianOption_MatchesTurnbullWakeman(t *testing.T) {
	if testing.Short() {
		t.Skip("full path count")
	}
	const vol = 0.32
	fixings := weekdays(day(10), day(20))
	forwards, err := models.NewPillarForwardCurve(buildDate, []time.Time{buildDate, day(15), day(100)}, []float64{100, 100, 100})
	require.NoError(t, err)
	disco, err := models.NewZeroRateCurve(buildDate, []time.Time{buildDate, day(1000)}, []float64{0, 0})
	require.NoError(t, err)

	lv, err := models.NewLocalVolDiffusion(models.LocalVolSpec{
		Name:     "CL",
		Surface:  models.ConstantVolSurface{Vol: vol},
		Forwards: forwards,
		Start:    buildDate,
		Expiry:   fixings[len(fixings)-1],
		Steps:    120,
	})
	require.NoError(t, err)
	asian, err := NewAssetPathPayoff(AsianOption{
		ID:          "asian",
		AssetID:     "CL",
		FixingDates: fixings,
		Strike:      101,
		Notional:    1,
		CallPut:     Call,
		PaymentDate: day(21),
	})
	require.NoError(t, err)

	cfg := paths.EngineConfig{NumberOfPaths: 1 << 16, PathsPerBlock: 1 << 12, VectorWidth: 4, Seed: 42}
	results, err := paths.Run(context.Background(), cfg, buildDate, nil, lv, asian)
	require.NoError(t, err)
	require.Len(t, results, 1)

	times := make([]float64, len(fixings))
	for i, d := range fixings {
		times[i] = paths.YearFraction(buildDate, d)
	}
	want := models.TurnbullWakemanPV(100, 101, vol, 1, times, 0, 0, true)

	pv, err := asian.PV(disco)
	require.NoError(t, err)
	se := results[0].StandardError
	assert.Greater(t, se, 0.0)
	assert.InDelta(t, want, pv, 3*se, "mc %.5f tw %.5f se %.5f", pv, want, se)
	assert.Equal(t, results[0].Mean, pv)
}
