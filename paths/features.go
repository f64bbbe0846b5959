package paths

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const daysPerYear = 365.0

// YearFraction is ACT/365F between two calendar days.
func YearFraction(start, end time.Time) float64 {
	return truncateDay(end).Sub(truncateDay(start)).Hours() / 24 / daysPerYear
}

func truncateDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// TimeGrid owns the simulation dates shared by every process.
// Dates are collected as a set while registering and frozen into a sorted grid by resolve.
type TimeGrid struct {
	buildDate time.Time
	requested map[time.Time]struct{}

	resolved  bool
	dates     []time.Time
	index     map[time.Time]int
	times     []float64
	steps     []float64
	stepsSqrt []float64
}

func newTimeGrid(buildDate time.Time) *TimeGrid {
	return &TimeGrid{
		buildDate: truncateDay(buildDate),
		requested: make(map[time.Time]struct{}),
	}
}

// AddDate requests a simulation date. Duplicates collapse.
func (g *TimeGrid) AddDate(d time.Time) error {
	if g.resolved {
		return fmt.Errorf("%w: date %s requested after resolve", ErrRegistryFrozen, d.Format(time.DateOnly))
	}
	g.requested[truncateDay(d)] = struct{}{}
	return nil
}

func (g *TimeGrid) AddDates(ds ...time.Time) error {
	for _, d := range ds {
		if err := g.AddDate(d); err != nil {
			return err
		}
	}
	return nil
}

func (g *TimeGrid) resolve() {
	g.dates = make([]time.Time, 0, len(g.requested))
	for d := range g.requested {
		g.dates = append(g.dates, d)
	}
	sort.Slice(g.dates, func(i, j int) bool { return g.dates[i].Before(g.dates[j]) })

	n := len(g.dates)
	g.index = make(map[time.Time]int, n)
	g.times = make([]float64, n)
	g.steps = make([]float64, n)
	g.stepsSqrt = make([]float64, n)
	for i, d := range g.dates {
		g.index[d] = i
		g.times[i] = YearFraction(g.buildDate, d)
		if i > 0 {
			g.steps[i] = g.times[i] - g.times[i-1]
			g.stepsSqrt[i] = math.Sqrt(g.steps[i])
		}
	}
	g.resolved = true
}

// IsComplete reports whether the grid has been frozen.
func (g *TimeGrid) IsComplete() bool { return g.resolved }

func (g *TimeGrid) BuildDate() time.Time { return g.buildDate }

// TimeStepCount is the number of grid dates (step 0 included).
func (g *TimeGrid) TimeStepCount() int { return len(g.dates) }

// Dates, Times, TimeSteps and TimeStepsSqrt expose the frozen grid. TimeSteps[i] is the
// year fraction from step i-1 to step i; TimeSteps[0] is zero. Callers must not modify them.
func (g *TimeGrid) Dates() []time.Time       { return g.dates }
func (g *TimeGrid) Times() []float64         { return g.times }
func (g *TimeGrid) TimeSteps() []float64     { return g.steps }
func (g *TimeGrid) TimeStepsSqrt() []float64 { return g.stepsSqrt }

// DateIndex returns the grid index of d.
func (g *TimeGrid) DateIndex(d time.Time) (int, error) {
	if !g.resolved {
		return 0, fmt.Errorf("%w: date index lookup for %s", ErrNotResolved, d.Format(time.DateOnly))
	}
	ix, ok := g.index[truncateDay(d)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDate, d.Format(time.DateOnly))
	}
	return ix, nil
}

// FactorMap assigns dense indices to named risk factors in first-request order.
// The assignment is deterministic for a given registration order but is not a stable
// contract across runs.
type FactorMap struct {
	names    []string
	index    map[string]int
	resolved bool
}

func newFactorMap() *FactorMap {
	return &FactorMap{index: make(map[string]int)}
}

// AddDimension registers a factor and returns its index. Registering a name twice
// returns the original index.
func (m *FactorMap) AddDimension(name string) (int, error) {
	if ix, ok := m.index[name]; ok {
		return ix, nil
	}
	if m.resolved {
		return 0, fmt.Errorf("%w: factor %q requested after resolve", ErrRegistryFrozen, name)
	}
	ix := len(m.names)
	m.names = append(m.names, name)
	m.index[name] = ix
	return ix, nil
}

// Index looks up a factor after resolution.
func (m *FactorMap) Index(name string) (int, error) {
	if !m.resolved {
		return 0, fmt.Errorf("%w: factor index lookup for %q", ErrNotResolved, name)
	}
	ix, ok := m.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
	}
	return ix, nil
}

func (m *FactorMap) NumberOfDimensions() int { return len(m.names) }

// Names returns factor names in index order.
func (m *FactorMap) Names() []string { return m.names }
