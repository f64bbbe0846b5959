package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/xhhuango/json"
	"gonum.org/v1/gonum/floats"

	"github.com/bcdannyboy/pathsim/config"
	"github.com/bcdannyboy/pathsim/paths"
	"github.com/bcdannyboy/pathsim/probability"
)

// Report is the JSON document written after a run.
type Report struct {
	BuildDate string        `json:"build_date"`
	Paths     int           `json:"paths"`
	Seed      int64         `json:"seed"`
	Trades    []TradeReport `json:"trades"`
}

type TradeReport struct {
	paths.Result
	PaymentDate       string  `json:"payment_date"`
	PV                float64 `json:"pv"`
	VaR               float64 `json:"var"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
	PFE               float64 `json:"pfe"`
}

// buildReport pairs engine results with PVs and path risk measures. P&L per path is
// the discounted path value less the PV.
func buildReport(sim *config.Simulation, results []paths.Result, confidence, pfeQuantile float64) (*Report, error) {
	byName := make(map[string]paths.Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	report := &Report{
		BuildDate: sim.BuildDate.Format(time.DateOnly),
		Paths:     sim.Engine.NumberOfPaths,
		Seed:      sim.Engine.Seed,
	}
	for _, p := range sim.Payoffs {
		res, ok := byName[p.Name()]
		if !ok {
			return nil, fmt.Errorf("no result for %s", p.Name())
		}
		pv, err := p.PV(sim.Discount)
		if err != nil {
			return nil, err
		}
		values, err := p.PVByPath(sim.Discount)
		if err != nil {
			return nil, err
		}
		tr := TradeReport{Result: res, PaymentDate: p.PaymentDate().Format(time.DateOnly), PV: pv}
		if tr.PFE, err = probability.PFE(values, pfeQuantile); err != nil {
			return nil, err
		}
		pnl := make([]float64, len(values))
		copy(pnl, values)
		floats.AddConst(-pv, pnl)
		if tr.VaR, err = probability.VaR(pnl, confidence); err != nil {
			return nil, err
		}
		if tr.ExpectedShortfall, err = probability.ExpectedShortfall(pnl, confidence); err != nil {
			return nil, err
		}
		report.Trades = append(report.Trades, tr)
	}
	return report, nil
}

func writeReport(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	return os.WriteFile(path, data, 0644)
}
