package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhhuango/json"

	"github.com/bcdannyboy/pathsim/config"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func smallSimulation(t *testing.T) *config.Simulation {
	t.Helper()
	s, err := config.LoadScenario(filepath.Join("..", "examples", "asian.yaml"))
	require.NoError(t, err)
	s.Engine.Paths = 2048
	s.Engine.PathsPerBlock = 256
	sim, err := s.Build()
	require.NoError(t, err)
	return sim
}

func TestBuildReport(t *testing.T) {
	sim := smallSimulation(t)
	results, err := simulate(context.Background(), sim)
	require.NoError(t, err)

	report, err := buildReport(sim, results, 0.95, 0.9)
	require.NoError(t, err)
	assert.Equal(t, "2018-10-04", report.BuildDate)
	assert.Equal(t, 2048, report.Paths)
	require.Len(t, report.Trades, 4)

	names := make([]string, len(report.Trades))
	for i, tr := range report.Trades {
		names[i] = tr.Name
		assert.Equal(t, 2048, tr.Paths)
		assert.GreaterOrEqual(t, tr.ExpectedShortfall, tr.VaR, tr.Name)
		assert.GreaterOrEqual(t, tr.PFE, 0.0, tr.Name)
	}
	assert.Equal(t, []string{"asian", "swap", "euro", "range"}, names)

	// zero rates: PV is the mean
	assert.InDelta(t, report.Trades[0].Mean, report.Trades[0].PV, 1e-12)
	assert.Equal(t, "2018-10-25", report.Trades[0].PaymentDate)
	assert.Equal(t, "2018-10-24", report.Trades[2].PaymentDate)

	_, err = buildReport(sim, results, 1.5, 0.9)
	assert.Error(t, err)
}

func TestSimulate_Cancelled(t *testing.T) {
	sim := smallSimulation(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := simulate(ctx, sim)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteReport(t *testing.T) {
	sim := smallSimulation(t)
	results, err := simulate(context.Background(), sim)
	require.NoError(t, err)
	report, err := buildReport(sim, results, 0.95, 0.95)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(report, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2018-10-04", decoded["build_date"])
	trades := decoded["trades"].([]any)
	require.Len(t, trades, 4)
	first := trades[0].(map[string]any)
	assert.Equal(t, "asian", first["name"])
	assert.Contains(t, first, "standard_error")
	assert.Contains(t, first, "pfe")
}
