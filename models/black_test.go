package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlackPrice_PutCallParity(t *testing.T) {
	for _, k := range []float64{60, 95, 100, 130} {
		c := BlackPrice(100, k, 0.75, 0.25, true)
		p := BlackPrice(100, k, 0.75, 0.25, false)
		assert.InDelta(t, 100-k, c-p, 1e-10, "strike %v", k)
	}
	assert.InDelta(t, 0.9*4, BlackPV(104, 100, 0.9, 0, 0.3, true), 1e-12)
	assert.Equal(t, 0.0, BlackPrice(90, 100, 1, 0, true))
}

func TestBlackPrice_KnownValue(t *testing.T) {
	// ATM forward: F·(2N(σ√T/2) − 1)
	want := 100 * (2*normCDF(0.2*0.5) - 1)
	assert.InDelta(t, want, BlackPrice(100, 100, 1, 0.2, true), 1e-12)
}

func TestAbsoluteStrikeFromDelta_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		call  bool
	}{
		{"25 call", 0.25, true},
		{"atm", 0.5, true},
		{"10 put", -0.10, false},
		{"75 put", -0.75, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := AbsoluteStrikeFromDelta(100, tt.delta, 0.5, 0.3)
			assert.InDelta(t, tt.delta, BlackDelta(100, k, 0.5, 0.3, tt.call), 1e-9)
		})
	}
	// put delta -0.5 and call delta 0.5 are the same strike
	assert.InDelta(t, AbsoluteStrikeFromDelta(100, 0.5, 1, 0.2), AbsoluteStrikeFromDelta(100, -0.5, 1, 0.2), 1e-12)
}

func TestImpliedVol_Recovers(t *testing.T) {
	for _, vol := range []float64{0.05, 0.2, 0.8} {
		price := BlackPrice(100, 110, 2, vol, true)
		assert.InDelta(t, vol, ImpliedVol(price, 100, 110, 2, true), 1e-6)
	}
	assert.True(t, math.IsNaN(ImpliedVol(-1, 100, 110, 2, true)))
}

func TestTurnbullWakeman_Limits(t *testing.T) {
	// one fixing is a European option
	euro := BlackPV(100, 101, 0.95, 0.5, 0.3, true)
	assert.InDelta(t, euro, TurnbullWakemanPV(100, 101, 0.3, 0.95, []float64{0.5}, 0, 0, true), 1e-12)

	// averaging lowers the option value
	times := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	asian := TurnbullWakemanPV(100, 101, 0.3, 1, times, 0, 0, true)
	assert.Less(t, asian, BlackPrice(100, 101, 0.5, 0.3, true))
	assert.Greater(t, asian, 0.0)

	// fully fixed averages pay intrinsic
	assert.InDelta(t, 4.0, TurnbullWakemanPV(100, 101, 0.3, 1, nil, 105, 5, true), 1e-12)

	// deep past fixings make the call a forward on the rest
	got := TurnbullWakemanPV(100, 50, 0.3, 1, []float64{0.5}, 200, 1, true)
	assert.InDelta(t, 0.5*(100-(50-100)/0.5), got, 1e-12)
}
