package payoffs

import "time"

type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// OptionType selects the payoff shape of an averaged price against a strike.
type OptionType int

const (
	Call OptionType = iota
	Put
	Swap
)

func (o OptionType) String() string {
	switch o {
	case Call:
		return "call"
	case Put:
		return "put"
	case Swap:
		return "swap"
	}
	return "unknown"
}

// Instrument is the closed set of trades AssetPathPayoff recognises.
type Instrument interface {
	TradeID() string
	isInstrument()
}

type AsianOption struct {
	ID          string
	AssetID     string
	FixingDates []time.Time
	Strike      float64
	Notional    float64
	Direction   Direction
	CallPut     OptionType
	PaymentDate time.Time
}

type AsianSwap struct {
	ID          string
	AssetID     string
	FixingDates []time.Time
	Strike      float64
	Notional    float64
	Direction   Direction
	PaymentDate time.Time
}

// AsianSwapStrip is a sequence of swaplets on one asset. It is evaluated as a single
// average over the union of swaplet fixings at the first swaplet's terms.
type AsianSwapStrip struct {
	ID       string
	Swaplets []AsianSwap
}

type EuropeanOption struct {
	ID          string
	AssetID     string
	ExpiryDate  time.Time
	Strike      float64
	Notional    float64
	Direction   Direction
	CallPut     OptionType
	PaymentDate time.Time
}

type Forward struct {
	ID          string
	AssetID     string
	ExpiryDate  time.Time
	Strike      float64
	Notional    float64
	Direction   Direction
	PaymentDate time.Time
}

// AsianBasisSwap exchanges two averages. Multi-asset payoffs are not simulated.
type AsianBasisSwap struct {
	ID          string
	PaySwaplets []AsianSwap
	RecSwaplets []AsianSwap
}

func (i AsianOption) TradeID() string    { return i.ID }
func (i AsianSwap) TradeID() string      { return i.ID }
func (i AsianSwapStrip) TradeID() string { return i.ID }
func (i EuropeanOption) TradeID() string { return i.ID }
func (i Forward) TradeID() string        { return i.ID }
func (i AsianBasisSwap) TradeID() string { return i.ID }

func (AsianOption) isInstrument()    {}
func (AsianSwap) isInstrument()      {}
func (AsianSwapStrip) isInstrument() {}
func (EuropeanOption) isInstrument() {}
func (Forward) isInstrument()        {}
func (AsianBasisSwap) isInstrument() {}
