package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/shirou/gopsutil/cpu"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/bcdannyboy/pathsim/config"
	"github.com/bcdannyboy/pathsim/paths"
)

var (
	// CLI flags for the run command
	scenarioPath string  // Scenario YAML file
	envFile      string  // Optional .env file with PATHSIM_* overrides
	logLevel     string  // Log verbosity level
	outPath      string  // JSON report destination, stdout when empty
	showProgress bool    // Draw a progress bar over blocks
	confidence   float64 // VaR and expected shortfall confidence level
	pfeQuantile  float64 // Potential future exposure quantile
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pathsim",
	Short: "Monte Carlo path simulation under local volatility",
}

// runCmd loads a scenario, simulates it and reports every trade
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a scenario file",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		scenario, err := config.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		sim, err := scenario.Build()
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(&sim.Engine); err != nil {
			return err
		}
		if sim.Engine.Workers == 0 {
			sim.Engine.Workers = defaultWorkers()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		results, err := simulate(ctx, sim)
		if err != nil {
			return err
		}

		report, err := buildReport(sim, results, confidence, pfeQuantile)
		if err != nil {
			return err
		}
		logrus.Infof("Simulation complete: %d trades over %d paths", len(report.Trades), sim.Engine.NumberOfPaths)
		return writeReport(report, outPath)
	},
}

func simulate(ctx context.Context, sim *config.Simulation) ([]paths.Result, error) {
	engine, err := paths.NewEngine(sim.BuildDate, sim.Engine, nil)
	if err != nil {
		return nil, err
	}
	engine.AddProcess(sim.Processes()...)

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if showProgress {
		p = mpb.New(mpb.WithWidth(64))
		bar = p.AddBar(int64(sim.Engine.NumberOfBlocks()),
			mpb.PrependDecorators(
				decor.Name("Blocks"),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
			),
		)
		engine.WithProgress(func(int, int) { bar.Increment() })
	}

	err = engine.Run(ctx)
	if p != nil {
		if err != nil {
			// an unfinished bar would block Wait
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return nil, err
	}
	return engine.Results()
}

// defaultWorkers is the logical CPU count, falling back to one worker.
func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		logrus.Warnf("cpu count unavailable (%v), using one worker", err)
		return 1
	}
	logrus.Debugf("Using %d workers", n)
	return n
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	runCmd.Flags().StringVar(&envFile, "env", ".env", "Environment file with PATHSIM_* overrides")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the JSON report to this file instead of stdout")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar")
	runCmd.Flags().Float64Var(&confidence, "confidence", 0.95, "VaR and expected shortfall confidence level")
	runCmd.Flags().Float64Var(&pfeQuantile, "pfe", 0.95, "Potential future exposure quantile")
	_ = runCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(runCmd)
}
