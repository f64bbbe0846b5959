package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
	"gopkg.in/yaml.v3"
)

var ErrScenario = errors.New("invalid scenario")

// Date is a calendar day written as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse(time.DateOnly, value.Value)
	if err != nil {
		return fmt.Errorf("line %d: date %q: %w", value.Line, value.Value, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.Format(time.DateOnly), nil
}

// Scenario is the full contents of a scenario file.
// Every section must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	BuildDate Date        `yaml:"build_date"`
	Engine    EngineBlock `yaml:"engine"`
	Discount  Discount    `yaml:"discount"`
	Assets    []Asset     `yaml:"assets"`
	Trades    []Trade     `yaml:"trades"`
}

type EngineBlock struct {
	Paths         int   `yaml:"paths"`
	PathsPerBlock int   `yaml:"paths_per_block"`
	VectorWidth   int   `yaml:"vector_width"`
	Workers       int   `yaml:"workers"`
	Seed          int64 `yaml:"seed"`
}

type Pillar struct {
	Date  Date    `yaml:"date"`
	Value float64 `yaml:"value"`
}

// Discount is either a flat continuously compounded rate or zero-rate pillars.
type Discount struct {
	FlatRate *float64 `yaml:"flat_rate"`
	Pillars  []Pillar `yaml:"pillars"`
}

type VolGrid struct {
	Strikes   []float64   `yaml:"strikes"`
	Times     []float64   `yaml:"times"`
	Vols      [][]float64 `yaml:"vols"`
	ATMStrike float64     `yaml:"atm_strike"`
}

type Vol struct {
	Constant *float64 `yaml:"constant"`
	Grid     *VolGrid `yaml:"grid"`
}

// Quanto is a constant FX vol and its correlation with the asset.
type Quanto struct {
	Vol         float64 `yaml:"vol"`
	Correlation float64 `yaml:"correlation"`
}

// Asset describes one local vol diffusion. Forwards come from pillars, or from Spot
// growing at the discount curve when no pillars are given.
type Asset struct {
	Name        string   `yaml:"name"`
	Spot        float64  `yaml:"spot"`
	Forwards    []Pillar `yaml:"forwards"`
	Vol         Vol      `yaml:"vol"`
	Start       *Date    `yaml:"start"`
	Expiry      Date     `yaml:"expiry"`
	Steps       int      `yaml:"steps"`
	PastFixings []Pillar `yaml:"past_fixings"`
	Quanto      *Quanto  `yaml:"quanto"`
}

// Trade is a flat union of every supported trade type, selected by Type.
type Trade struct {
	Type      string `yaml:"type"`
	ID        string `yaml:"id"`
	Asset     string `yaml:"asset"`
	Direction string `yaml:"direction"`
	CallPut   string `yaml:"call_put"`

	Strike      float64 `yaml:"strike"`
	Notional    float64 `yaml:"notional"`
	PaymentDate *Date   `yaml:"payment_date"`

	// averaging trades: explicit dates, or weekdays between AverageStart and AverageEnd
	FixingDates  []Date `yaml:"fixing_dates"`
	AverageStart *Date  `yaml:"average_start"`
	AverageEnd   *Date  `yaml:"average_end"`

	Expiry *Date `yaml:"expiry"`

	Swaplets []Trade `yaml:"swaplets"`

	ObservationStart *Date   `yaml:"observation_start"`
	ObservationEnd   *Date   `yaml:"observation_end"`
	Lower            float64 `yaml:"lower"`
	Upper            float64 `yaml:"upper"`
	Barrier          string  `yaml:"barrier"`
	Currency         string  `yaml:"currency"`
}

// LoadScenario reads a scenario file with strict field checking: unknown keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScenario, err)
	}
	if s.BuildDate.IsZero() {
		return nil, fmt.Errorf("%w: build_date is required", ErrScenario)
	}
	return &s, nil
}

// EngineConfig fills unset engine fields from paths.DefaultEngineConfig.
func (s *Scenario) EngineConfig() paths.EngineConfig {
	cfg := paths.DefaultEngineConfig()
	if s.Engine.Paths > 0 {
		cfg.NumberOfPaths = s.Engine.Paths
	}
	if s.Engine.PathsPerBlock > 0 {
		cfg.PathsPerBlock = s.Engine.PathsPerBlock
	}
	if s.Engine.VectorWidth > 0 {
		cfg.VectorWidth = s.Engine.VectorWidth
	}
	if s.Engine.Workers > 0 {
		cfg.Workers = s.Engine.Workers
	}
	if s.Engine.Seed != 0 {
		cfg.Seed = s.Engine.Seed
	}
	return cfg
}
