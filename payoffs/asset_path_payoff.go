package payoffs

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bcdannyboy/pathsim/paths"
)

// AssetPathPayoff evaluates an average of one asset's fixings against a strike.
// European options and forwards are the single-fixing case.
type AssetPathPayoff struct {
	paths.Lifecycle
	accumulator

	instrument Instrument
	assetID    string
	dates      []time.Time
	strike     float64
	notional   float64 // signed by direction
	optionType OptionType

	factor      int
	dateIndexes []int
}

// NewAssetPathPayoff maps a supported instrument to its averaging terms.
func NewAssetPathPayoff(inst Instrument) (*AssetPathPayoff, error) {
	p := &AssetPathPayoff{instrument: inst}
	switch i := inst.(type) {
	case AsianOption:
		p.assetID, p.dates, p.strike, p.optionType = i.AssetID, i.FixingDates, i.Strike, i.CallPut
		p.notional = i.Notional * i.Direction.sign()
		p.payDate = i.PaymentDate
	case AsianSwap:
		p.assetID, p.dates, p.strike, p.optionType = i.AssetID, i.FixingDates, i.Strike, Swap
		p.notional = i.Notional * i.Direction.sign()
		p.payDate = i.PaymentDate
	case AsianSwapStrip:
		if len(i.Swaplets) == 0 {
			return nil, fmt.Errorf("%w: swap strip %s has no swaplets", ErrInvalidPayoff, i.ID)
		}
		first := i.Swaplets[0]
		p.assetID, p.strike, p.optionType = first.AssetID, first.Strike, Swap
		p.notional = first.Notional * first.Direction.sign()
		p.dates = stripDates(i.Swaplets)
		p.payDate = i.Swaplets[len(i.Swaplets)-1].PaymentDate
	case EuropeanOption:
		p.assetID, p.dates, p.strike, p.optionType = i.AssetID, []time.Time{i.ExpiryDate}, i.Strike, i.CallPut
		p.notional = i.Notional * i.Direction.sign()
		p.payDate = i.PaymentDate
	case Forward:
		p.assetID, p.dates, p.strike, p.optionType = i.AssetID, []time.Time{i.ExpiryDate}, i.Strike, Swap
		p.notional = i.Notional * i.Direction.sign()
		p.payDate = i.PaymentDate
	case AsianBasisSwap:
		return nil, fmt.Errorf("%w: %s: multi-asset basis swaps", ErrUnsupportedInstrument, i.ID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedInstrument, inst)
	}
	if p.assetID == "" {
		return nil, fmt.Errorf("%w: %s has no asset", ErrInvalidPayoff, inst.TradeID())
	}
	if len(p.dates) == 0 {
		return nil, fmt.Errorf("%w: %s has no fixing dates", ErrInvalidPayoff, inst.TradeID())
	}
	if p.payDate.IsZero() {
		p.payDate = latest(p.dates)
	}
	p.name = inst.TradeID()
	if p.name == "" {
		p.name = fmt.Sprintf("%s:%s", p.optionType, p.assetID)
	}
	return p, nil
}

// stripDates is the sorted union of swaplet fixing days.
func stripDates(swaplets []AsianSwap) []time.Time {
	seen := make(map[string]bool)
	var out []time.Time
	for _, s := range swaplets {
		for _, d := range s.FixingDates {
			key := d.Format(time.DateOnly)
			if !seen[key] {
				seen[key] = true
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func latest(ds []time.Time) time.Time {
	l := ds[0]
	for _, d := range ds[1:] {
		if d.After(l) {
			l = d
		}
	}
	return l
}

func (p *AssetPathPayoff) Name() string            { return p.name }
func (p *AssetPathPayoff) Kind() paths.ProcessKind { return paths.KindPayoff }
func (p *AssetPathPayoff) IsComplete() bool        { return p.IsResolved() }
func (p *AssetPathPayoff) Instrument() Instrument  { return p.instrument }
func (p *AssetPathPayoff) AssetID() string         { return p.assetID }

// FixingDates are the dates the average is taken over.
func (p *AssetPathPayoff) FixingDates() []time.Time { return p.dates }

func (p *AssetPathPayoff) SetupFeatures(reg *paths.FeatureRegistry) error {
	if err := p.Register(p.Name()); err != nil {
		return err
	}
	return reg.TimeSteps().AddDates(p.dates...)
}

func (p *AssetPathPayoff) Finish(reg *paths.FeatureRegistry) error {
	if err := p.Resolve(p.Name(), reg); err != nil {
		return err
	}
	var err error
	if p.factor, err = reg.Mapping().Index(p.assetID); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	// duplicate fixing days collapse in the grid but still count once each in the average
	p.dateIndexes = make([]int, len(p.dates))
	for i, d := range p.dates {
		if p.dateIndexes[i], err = reg.TimeSteps().DateIndex(d); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	p.init(reg)
	return nil
}

func (p *AssetPathPayoff) Process(block *paths.PathBlock) error {
	if err := p.Begin(p.Name()); err != nil {
		return err
	}
	width := block.VectorWidth()
	n := float64(len(p.dateIndexes))
	for path := 0; path < block.NumberOfPaths(); path += width {
		steps := block.StepsForFactor(path, p.factor)
		out := p.values[block.GlobalPathIndex()+path:][:width]
		for l := range out {
			var sum float64
			for _, ix := range p.dateIndexes {
				sum += steps.At(ix)[l]
			}
			out[l] = p.payoff(sum / n)
		}
	}
	if p.add(block.NumberOfPaths()) {
		p.Done()
	}
	return nil
}

func (p *AssetPathPayoff) payoff(average float64) float64 {
	switch p.optionType {
	case Call:
		return math.Max(average-p.strike, 0) * p.notional
	case Put:
		return math.Max(p.strike-average, 0) * p.notional
	default:
		return (average - p.strike) * p.notional
	}
}
