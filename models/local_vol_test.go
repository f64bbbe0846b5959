package models

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func TestLocalVariance_FlatSurfaceRecoversVol(t *testing.T) {
	surface := ConstantVolSurface{Vol: 0.32}
	t1, t2 := 0.1, 0.11
	for _, drift := range []float64{0, 0.05} {
		f1 := 100.0
		f2 := f1 * math.Exp(drift*(t2-t1))
		strikes := strikeGrid(f1, t1, 0.32)
		require.True(t, increasing(strikes))

		vars, floored := localVariance(surface, strikes, t1, t2, f1, f2)
		assert.Zero(t, floored)
		for k := 20; k < 180; k++ {
			assert.InEpsilon(t, 0.32*0.32, vars[k], 0.02, "drift %v node %d strike %v", drift, k, strikes[k])
		}
	}
}

func TestLocalVariance_NonNegativeOnSkew(t *testing.T) {
	surface, err := NewGridVolSurface(
		[]float64{50, 80, 100, 120, 200},
		[]float64{0.1, 0.5, 1},
		[][]float64{
			{0.60, 0.20, 0.10, 0.35, 0.90},
			{0.45, 0.30, 0.25, 0.28, 0.50},
			{0.40, 0.28, 0.26, 0.27, 0.30},
		},
		100,
	)
	require.NoError(t, err)
	for _, times := range [][2]float64{{0.1, 0.12}, {0.3, 0.5}, {0.9, 1.0}} {
		atm := surface.VolForDelta(0.5, times[0], 100)
		strikes := strikeGrid(100, times[0], atm)
		vars, _ := localVariance(surface, strikes, times[0], times[1], 100, 100)
		for i, v := range vars {
			assert.GreaterOrEqual(t, v, 0.0, "node %d", i)
			assert.False(t, math.IsNaN(v))
		}
	}
}

// terminalReader copies a factor's value at one grid date for every path.
type terminalReader struct {
	paths.Lifecycle
	factor string
	date   time.Time
	ix     int
	step   int
	values []float64
}

func (r *terminalReader) Name() string            { return "reader" }
func (r *terminalReader) Kind() paths.ProcessKind { return paths.KindPayoff }
func (r *terminalReader) IsComplete() bool        { return r.IsResolved() }

func (r *terminalReader) SetupFeatures(reg *paths.FeatureRegistry) error {
	if err := r.Register(r.Name()); err != nil {
		return err
	}
	return reg.TimeSteps().AddDate(r.date)
}

func (r *terminalReader) Finish(reg *paths.FeatureRegistry) error {
	if err := r.Resolve(r.Name(), reg); err != nil {
		return err
	}
	var err error
	if r.ix, err = reg.Mapping().Index(r.factor); err != nil {
		return err
	}
	if r.step, err = reg.TimeSteps().DateIndex(r.date); err != nil {
		return err
	}
	r.values = make([]float64, reg.Engine().NumberOfPaths)
	return nil
}

func (r *terminalReader) Process(b *paths.PathBlock) error {
	if err := r.Begin(r.Name()); err != nil {
		return err
	}
	for p := 0; p < b.NumberOfPaths(); p += b.VectorWidth() {
		copy(r.values[b.GlobalPathIndex()+p:], b.StepsForFactor(p, r.ix).At(r.step))
	}
	return nil
}

func simulateTerminal(t *testing.T, spec LocalVolSpec, date time.Time, numPaths int) []float64 {
	t.Helper()
	lv, err := NewLocalVolDiffusion(spec)
	require.NoError(t, err)
	reader := &terminalReader{factor: spec.Name, date: date}
	cfg := paths.EngineConfig{NumberOfPaths: numPaths, PathsPerBlock: 1024, VectorWidth: 4, Seed: 11}
	_, err = paths.Run(context.Background(), cfg, buildDate, nil, lv, reader)
	require.NoError(t, err)
	return reader.values
}

func TestLocalVolDiffusion_MartingaleAndVol(t *testing.T) {
	spec := LocalVolSpec{
		Name:     "SPX",
		Surface:  ConstantVolSurface{Vol: 0.2},
		Forwards: FlatForwardCurve{Level: 100},
		Start:    buildDate,
		Expiry:   day(365),
		Steps:    24,
	}
	values := simulateTerminal(t, spec, day(365), 16384)

	mean, std := stat.MeanStdDev(values, nil)
	se := std / math.Sqrt(float64(len(values)))
	assert.InDelta(t, 100, mean, 4*se)

	logs := make([]float64, len(values))
	for i, v := range values {
		logs[i] = math.Log(v / 100)
	}
	assert.InDelta(t, 0.2, stat.StdDev(logs, nil), 0.006)
}

// skewSurface is a smooth log-strike skew, so Dupire sees no interpolation kinks.
type skewSurface struct {
	atm, slope float64
}

func (s skewSurface) VolForStrike(strike, _, forward float64) float64 {
	return math.Max(s.atm-s.slope*math.Log(strike/forward), 0.05)
}

func (s skewSurface) VolForDelta(delta, expiry, forward float64) float64 {
	vol := s.atm
	for i := 0; i < maxIterations; i++ {
		next := s.VolForStrike(AbsoluteStrikeFromDelta(forward, delta, expiry, vol), expiry, forward)
		if math.Abs(next-vol) < epsilon {
			return next
		}
		vol = next
	}
	return vol
}

func TestLocalVolDiffusion_RepricesSkew(t *testing.T) {
	if testing.Short() {
		t.Skip("full path count")
	}
	surface := skewSurface{atm: 0.22, slope: 0.15}
	spec := LocalVolSpec{
		Name:     "SPX",
		Surface:  surface,
		Forwards: FlatForwardCurve{Level: 100},
		Start:    buildDate,
		Expiry:   day(365),
		Steps:    52,
	}
	values := simulateTerminal(t, spec, day(365), 1<<17)

	payoff := make([]float64, len(values))
	for _, k := range []float64{80, 100, 120} {
		for i, v := range values {
			payoff[i] = math.Max(v-k, 0)
		}
		price, std := stat.MeanStdDev(payoff, nil)
		want := surface.VolForStrike(k, 1, 100)
		volSE := std / math.Sqrt(float64(len(payoff))) / blackVega(100, k, 1, want)

		got := ImpliedVol(price, 100, k, 1, true)
		require.False(t, math.IsNaN(got), "strike %v", k)
		assert.InDelta(t, want, got, 4*volSE, "strike %v: mc %.4f surface %.4f", k, got, want)
	}
}

func TestLocalVolDiffusion_FollowsForwardCurve(t *testing.T) {
	fwd, err := NewPillarForwardCurve(buildDate, []time.Time{day(0), day(365)}, []float64{100, 110})
	require.NoError(t, err)
	spec := LocalVolSpec{
		Name:     "CL",
		Surface:  ConstantVolSurface{Vol: 0.1},
		Forwards: fwd,
		Start:    buildDate,
		Expiry:   day(365),
		Steps:    12,
	}
	values := simulateTerminal(t, spec, day(365), 8192)
	mean, std := stat.MeanStdDev(values, nil)
	assert.InDelta(t, 110, mean, 4*std/math.Sqrt(float64(len(values))))
}

func TestLocalVolDiffusion_ForwardStartSeedsStartForward(t *testing.T) {
	fwd, err := NewPillarForwardCurve(buildDate, []time.Time{day(0), day(365)}, []float64{100, 110})
	require.NoError(t, err)
	lv, err := NewLocalVolDiffusion(LocalVolSpec{
		Name:     "CL",
		Surface:  ConstantVolSurface{Vol: 0.1},
		Forwards: fwd,
		Start:    day(73),
		Expiry:   day(365),
		Steps:    8,
	})
	require.NoError(t, err)
	start := &terminalReader{factor: "CL", date: day(73)}
	end := &terminalReader{factor: "CL", date: day(365)}
	cfg := paths.EngineConfig{NumberOfPaths: 8192, PathsPerBlock: 1024, VectorWidth: 4, Seed: 3}
	_, err = paths.Run(context.Background(), cfg, buildDate, nil, lv, start, end)
	require.NoError(t, err)

	for _, v := range start.values {
		require.InDelta(t, fwd.Forward(day(73)), v, 1e-12)
	}
	mean, std := stat.MeanStdDev(end.values, nil)
	assert.InDelta(t, 110, mean, 4*std/math.Sqrt(float64(len(end.values))))
}

func TestLocalVolDiffusion_QuantoDrift(t *testing.T) {
	spec := LocalVolSpec{
		Name:        "NKY",
		Surface:     ConstantVolSurface{Vol: 0.2},
		Forwards:    FlatForwardCurve{Level: 100},
		Start:       buildDate,
		Expiry:      day(365),
		Steps:       12,
		FXSurface:   ConstantVolSurface{Vol: 0.1},
		Correlation: -0.5,
	}
	values := simulateTerminal(t, spec, day(365), 8192)
	mean, std := stat.MeanStdDev(values, nil)
	want := 100 * math.Exp(0.2*0.1*1*-0.5)
	assert.InDelta(t, want, mean, 4*std/math.Sqrt(float64(len(values))))
}

func TestLocalVolDiffusion_PastFixings(t *testing.T) {
	start := day(10)
	spec := LocalVolSpec{
		Name:        "SPX",
		Surface:     ConstantVolSurface{Vol: 0.2},
		Forwards:    FlatForwardCurve{Level: 100},
		Start:       start,
		Expiry:      day(40),
		Steps:       3,
		PastFixings: map[time.Time]float64{day(2): 97, day(5): 99, day(30): 1},
	}
	lv, err := NewLocalVolDiffusion(spec)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(10), day(20), day(30), day(40)}, lv.SimulationDates())

	fixed := &terminalReader{factor: "SPX", date: day(5)}
	cfg := paths.EngineConfig{NumberOfPaths: 8, PathsPerBlock: 8, VectorWidth: 4, Seed: 1}
	e, err := paths.NewEngine(buildDate, cfg, nil)
	require.NoError(t, err)
	e.AddProcess(lv, fixed)
	require.NoError(t, e.Run(context.Background()))

	for _, v := range fixed.values {
		assert.Equal(t, 99.0, v)
	}
	// fixings on or after start are ignored
	assert.Equal(t, 6, e.Registry().TimeSteps().TimeStepCount())
}

func TestLocalVolDiffusion_MissingPastFixing(t *testing.T) {
	lv, err := NewLocalVolDiffusion(LocalVolSpec{
		Name:     "SPX",
		Surface:  ConstantVolSurface{Vol: 0.2},
		Forwards: FlatForwardCurve{Level: 100},
		Start:    day(10),
		Expiry:   day(40),
		Steps:    3,
	})
	require.NoError(t, err)
	// a payoff fixing before the simulation start with nothing to seed it
	early := &terminalReader{factor: "SPX", date: day(3)}
	cfg := paths.EngineConfig{NumberOfPaths: 8, PathsPerBlock: 8, VectorWidth: 4, Seed: 1}
	_, err = paths.Run(context.Background(), cfg, buildDate, nil, lv, early)
	assert.ErrorIs(t, err, ErrLocalVolConfig)
}

func TestNewLocalVolDiffusion_Validation(t *testing.T) {
	valid := LocalVolSpec{
		Name:     "SPX",
		Surface:  ConstantVolSurface{Vol: 0.2},
		Forwards: FlatForwardCurve{Level: 100},
		Start:    buildDate,
		Expiry:   day(30),
		Steps:    3,
	}
	tests := []struct {
		name   string
		mutate func(*LocalVolSpec)
	}{
		{"empty name", func(s *LocalVolSpec) { s.Name = "" }},
		{"no steps", func(s *LocalVolSpec) { s.Steps = 0 }},
		{"expiry before start", func(s *LocalVolSpec) { s.Expiry = day(-1) }},
		{"nil surface", func(s *LocalVolSpec) { s.Surface = nil }},
		{"nil forwards", func(s *LocalVolSpec) { s.Forwards = nil }},
		{"correlation without fx", func(s *LocalVolSpec) { s.Correlation = 0.3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			_, err := NewLocalVolDiffusion(spec)
			assert.ErrorIs(t, err, ErrLocalVolConfig)
		})
	}
	_, err := NewLocalVolDiffusion(valid)
	assert.NoError(t, err)
}

func TestLocalVolDiffusion_ProcessBeforeFinish(t *testing.T) {
	lv, err := NewLocalVolDiffusion(LocalVolSpec{
		Name:     "SPX",
		Surface:  ConstantVolSurface{Vol: 0.2},
		Forwards: FlatForwardCurve{Level: 100},
		Start:    buildDate,
		Expiry:   day(30),
		Steps:    3,
	})
	require.NoError(t, err)
	err = lv.Process(paths.NewPathBlock(0, 1, 4, 4, 4))
	assert.ErrorIs(t, err, paths.ErrNotResolved)
}
